package dashboard

import "strings"

type swatch struct {
	Color    string
	Gradient string
}

var categoryPalette = map[string]swatch{
	"social":       {Color: "#3B82F6", Gradient: "from-blue-500 to-blue-600"},
	"engagement":   {Color: "#8B5CF6", Gradient: "from-violet-500 to-violet-600"},
	"events":       {Color: "#F59E0B", Gradient: "from-amber-500 to-amber-600"},
	"learning":     {Color: "#10B981", Gradient: "from-emerald-500 to-emerald-600"},
	"professional": {Color: "#6366F1", Gradient: "from-indigo-500 to-indigo-600"},
	"content":      {Color: "#EC4899", Gradient: "from-pink-500 to-pink-600"},
	"rewards":      {Color: "#EF4444", Gradient: "from-red-500 to-red-600"},
	"other":        {Color: "#6B7280", Gradient: "from-gray-500 to-gray-600"},
}

var fallbackPalette = []swatch{
	{Color: "#14B8A6", Gradient: "from-teal-500 to-teal-600"},
	{Color: "#F97316", Gradient: "from-orange-500 to-orange-600"},
	{Color: "#84CC16", Gradient: "from-lime-500 to-lime-600"},
	{Color: "#06B6D4", Gradient: "from-cyan-500 to-cyan-600"},
	{Color: "#A855F7", Gradient: "from-purple-500 to-purple-600"},
	{Color: "#F43F5E", Gradient: "from-rose-500 to-rose-600"},
	{Color: "#0EA5E9", Gradient: "from-sky-500 to-sky-600"},
	{Color: "#EAB308", Gradient: "from-yellow-500 to-yellow-600"},
}

// colorAssigner hands out swatches for one projection pass. Known categories
// use the fixed table; unknown ones take fallback swatches in first-seen order.
type colorAssigner struct {
	assigned map[string]swatch
	next     int
}

func newColorAssigner() *colorAssigner {
	return &colorAssigner{assigned: make(map[string]swatch)}
}

func (a *colorAssigner) assign(category string) swatch {
	key := strings.ToLower(strings.TrimSpace(category))
	if s, ok := categoryPalette[key]; ok {
		return s
	}
	if s, ok := a.assigned[key]; ok {
		return s
	}
	// wraps once the fallback palette is exhausted
	s := fallbackPalette[a.next%len(fallbackPalette)]
	a.next++
	a.assigned[key] = s
	return s
}
