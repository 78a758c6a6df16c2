// Package disposal maps detected waste labels to the bin they belong in.
package disposal

import (
	"image/color"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Category describes where a kind of waste is disposed of.
type Category struct {
	// Material is the display name of the material.
	Material string `json:"material" yaml:"material"`
	// Bin is the bin the material goes in.
	Bin string `json:"bin" yaml:"bin"`
	// Description is the waste stream of the bin.
	Description string `json:"description" yaml:"description"`
	// Colour is the colour of the bin.
	Colour colorful.Color `json:"-" yaml:"-"`
	// Recyclable is false for general and organic waste.
	Recyclable bool `json:"recyclable" yaml:"recyclable"`
}

// Hex returns the bin colour as "#rrggbb".
func (c Category) Hex() string {
	return c.Colour.Hex()
}

// RGBA returns the bin colour, fully opaque.
func (c Category) RGBA() color.RGBA {
	r, g, b := c.Colour.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

func mustHex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

const recyclable = "Recyclable waste"

var (
	red    = mustHex("#D32F2F")
	blue   = mustHex("#1976D2")
	yellow = mustHex("#FBC02D")
	green  = mustHex("#388E3C")
	brown  = mustHex("#5D4037")
	grey   = mustHex("#9E9E9E")
)

// General is the category of anything that is not recognised.
var General = Category{
	Material:    "Unknown",
	Bin:         "Grey bin",
	Description: "General waste / not recyclable",
	Colour:      grey,
}

var categories = map[string]Category{
	"plastic":       {Material: "Plastic", Bin: "Red bin", Description: recyclable, Colour: red, Recyclable: true},
	"paper":         {Material: "Paper", Bin: "Blue bin", Description: recyclable, Colour: blue, Recyclable: true},
	"cardboard":     {Material: "Cardboard", Bin: "Blue bin", Description: recyclable, Colour: blue, Recyclable: true},
	"metal":         {Material: "Metal", Bin: "Yellow bin", Description: recyclable, Colour: yellow, Recyclable: true},
	"glass":         {Material: "Glass", Bin: "Green bin", Description: recyclable, Colour: green, Recyclable: true},
	"biodegradable": {Material: "Organic", Bin: "Brown bin", Description: "Organic waste / compost", Colour: brown},
}

// Lookup returns the disposal category of a detection label. Matching ignores case and
// surrounding whitespace; unknown labels get General.
//
// Arguments:
//   - label: The detection label, e.g. "Plastic".
//
// Returns:
//   - Category: The category.
//   - bool: False when General was returned because the label is unknown.
func Lookup(label string) (Category, bool) {
	c, ok := categories[strings.ToLower(strings.TrimSpace(label))]
	if !ok {
		return General, false
	}
	return c, true
}
