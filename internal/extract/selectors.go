package extract

import "github.com/JakeFAU/gridscraper/internal/browser"

// Selectors is the page contract the extractor depends on. It tracks the
// current markup of the target site and changes when the site does.
type Selectors struct {
	Consent  browser.Selector
	Listing  browser.Selector
	Links    browser.Selector
	Title    browser.Selector
	Content  []browser.Selector
	Images   []browser.Selector
	LinkAttr string
	ImgAttr  string
}

// DefaultSelectors returns the selectors for elpais.com article pages.
func DefaultSelectors() Selectors {
	return Selectors{
		Consent: browser.ID("didomi-notice-agree-button"),
		Listing: browser.Tag("article"),
		Links:   browser.XPath("//article//h2/a"),
		Title:   browser.Tag("h1"),
		Content: []browser.Selector{
			browser.XPath("//article//p"),
			browser.XPath("//div[@data-dtm-region='articulo_cuerpo']//p"),
		},
		Images: []browser.Selector{
			browser.XPath("//article//img"),
			browser.XPath("//figure//img"),
		},
		LinkAttr: "href",
		ImgAttr:  "src",
	}
}
