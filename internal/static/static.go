// Package static serves the fixed catalogs that populate picker UIs: the
// font list and the mock image-search results.
package static

import "strings"

type Font struct {
	Name   string `json:"name"`
	Family string `json:"family"`
}

type ImageResult struct {
	ID           string `json:"id"`
	URL          string `json:"url"`
	ThumbnailURL string `json:"thumbnail_url"`
	Description  string `json:"description"`
}

var fonts = []Font{
	{Name: "Arial", Family: "Arial, sans-serif"},
	{Name: "Georgia", Family: "Georgia, serif"},
	{Name: "Courier New", Family: "'Courier New', monospace"},
	{Name: "Times New Roman", Family: "'Times New Roman', serif"},
	{Name: "Verdana", Family: "Verdana, sans-serif"},
	{Name: "Helvetica", Family: "Helvetica, sans-serif"},
	{Name: "Garamond", Family: "Garamond, serif"},
	{Name: "Trebuchet MS", Family: "'Trebuchet MS', sans-serif"},
}

var images = []ImageResult{
	{ID: "img1", URL: "/placeholder.svg?height=600&width=800", ThumbnailURL: "/placeholder.svg?height=150&width=200", Description: "Mountain landscape"},
	{ID: "img2", URL: "/placeholder.svg?height=600&width=800", ThumbnailURL: "/placeholder.svg?height=150&width=200", Description: "City skyline at night"},
	{ID: "img3", URL: "/placeholder.svg?height=600&width=800", ThumbnailURL: "/placeholder.svg?height=150&width=200", Description: "Forest trail"},
	{ID: "img4", URL: "/placeholder.svg?height=600&width=800", ThumbnailURL: "/placeholder.svg?height=150&width=200", Description: "Ocean waves"},
	{ID: "img5", URL: "/placeholder.svg?height=600&width=800", ThumbnailURL: "/placeholder.svg?height=150&width=200", Description: "Desert dunes"},
	{ID: "img6", URL: "/placeholder.svg?height=600&width=800", ThumbnailURL: "/placeholder.svg?height=150&width=200", Description: "Moose in a meadow"},
}

// Fonts returns the font catalog.
func Fonts() []Font {
	return append([]Font(nil), fonts...)
}

// SearchImages filters the mock results by description. An empty query
// returns the whole catalog, matching the picker's browse view.
func SearchImages(query string) []ImageResult {
	if query == "" {
		return append([]ImageResult(nil), images...)
	}
	q := strings.ToLower(query)
	results := []ImageResult{}
	for _, img := range images {
		if strings.Contains(strings.ToLower(img.Description), q) {
			results = append(results, img)
		}
	}
	return results
}
