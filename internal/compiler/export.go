package compiler

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Markup is the element pair the stylesheet animates.
const Markup = `<div class="bxs-video-container"><div class="bxs-video"></div></div>`

// StyleText makes css safe to inline in a style element: "</" becomes
// "<\/", which the CSS parser still reads as "</" but which cannot close
// the element.
func StyleText(css string) string {
	return strings.ReplaceAll(css, "</", `<\/`)
}

// HTMLDocument wraps a stylesheet in a standalone page.
func HTMLDocument(css string) string {
	return fmt.Sprintf(`<!DOCTYPE html><html lang="en"><head><meta charset="UTF-8">`+
		`<meta name="viewport" content="width=device-width, initial-scale=1.0">`+
		`<title>Video made with box-shadows</title><style>%s</style></head>`+
		`<body>%s</body></html>`, StyleText(css), Markup)
}

// Codepen is the prefill payload accepted by codepen.io/pen/define.
type Codepen struct {
	Title            string `json:"title"`
	HTML             string `json:"html"`
	HTMLPreProcessor string `json:"html_pre_processor"`
	CSS              string `json:"css"`
	CSSPreProcessor  string `json:"css_pre_processor"`
	CSSStarter       string `json:"css_starter"`
	CSSPrefixFree    bool   `json:"css_prefix_free"`
	JS               string `json:"js"`
	JSPreProcessor   string `json:"js_pre_processor"`
	JSModernizr      bool   `json:"js_modernizr"`
	JSLibrary        string `json:"js_library"`
	HTMLClasses      string `json:"html_classes"`
	CSSExternal      string `json:"css_external"`
	JSExternal       string `json:"js_external"`
	Template         bool   `json:"template"`
}

// CodepenPayload builds the JSON payload for a stylesheet.
func CodepenPayload(css string) ([]byte, error) {
	return json.Marshal(Codepen{
		Title:            "Video made with box-shadows",
		HTML:             Markup,
		HTMLPreProcessor: "none",
		CSS:              css,
		CSSPreProcessor:  "none",
		CSSStarter:       "neither",
		JS:               "// Create videos with CSS box-shadows",
		JSPreProcessor:   "none",
	})
}
