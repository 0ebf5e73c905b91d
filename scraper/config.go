package scraper

// Selectors define how news is located in the university website markup.
type Selectors struct {
	List    ListSelectors    `json:"list" yaml:"list"`
	Article ArticleSelectors `json:"article" yaml:"article"`
}

// ListSelectors locate news boxes on a listing page. Selectors other than
// NewsBox are evaluated inside each box.
type ListSelectors struct {
	NewsBox   string `json:"news_box" yaml:"news_box"`
	Image     string `json:"image" yaml:"image"`
	TitleLink string `json:"title_link" yaml:"title_link"`
	TextBlock string `json:"text_block" yaml:"text_block"`
	Paragraph string `json:"paragraph" yaml:"paragraph"`
}

// ArticleSelectors locate the body of an article page.
type ArticleSelectors struct {
	Container string `json:"container" yaml:"container"`
	Paragraph string `json:"paragraph" yaml:"paragraph"`
	Image     string `json:"image" yaml:"image"`
}

// DefaultSelectors returns the selectors matching the university news site.
func DefaultSelectors() Selectors {
	return Selectors{
		List: ListSelectors{
			NewsBox:   "div.news-box",
			Image:     "div.news-box-image img",
			TitleLink: ".news-box-title a",
			TextBlock: "div.news-box-text",
			Paragraph: "p",
		},
		Article: ArticleSelectors{
			Container: "div.news-single-text",
			Paragraph: "p",
			Image:     "img",
		},
	}
}

// withDefaults fills empty selectors from DefaultSelectors.
func (s Selectors) withDefaults() Selectors {
	d := DefaultSelectors()
	fill := func(v *string, def string) {
		if *v == "" {
			*v = def
		}
	}

	fill(&s.List.NewsBox, d.List.NewsBox)
	fill(&s.List.Image, d.List.Image)
	fill(&s.List.TitleLink, d.List.TitleLink)
	fill(&s.List.TextBlock, d.List.TextBlock)
	fill(&s.List.Paragraph, d.List.Paragraph)
	fill(&s.Article.Container, d.Article.Container)
	fill(&s.Article.Paragraph, d.Article.Paragraph)
	fill(&s.Article.Image, d.Article.Image)
	return s
}
