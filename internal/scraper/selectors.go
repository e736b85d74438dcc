package scraper

// fieldSelectors is an ordered fallback list for one extracted field. The
// order walks template generations newest-first; the first selector with a
// non-empty match wins. Supporting a new editor generation is a data change.
type fieldSelectors struct {
	Field      string
	Candidates []string
}

// Selector tables for the known Naver editor generations: SmartEditor ONE,
// SmartEditor 2.0, and the legacy pre-SmartEditor markup.
var (
	titleSelectors = fieldSelectors{
		Field: "title",
		Candidates: []string{
			".se-title-text",
			"div.se_title",
			"h3.se-title",
			".pcol1",
		},
	}

	bodySelectors = fieldSelectors{
		Field: "body",
		Candidates: []string{
			"div.se-main-container",
			"div.se_component_wrap",
			"div#postViewArea",
		},
	}

	authorSelectors = fieldSelectors{
		Field: "author",
		Candidates: []string{
			".nick",
			".writer",
			"strong.blog_author",
		},
	}

	dateSelectors = fieldSelectors{
		Field: "date",
		Candidates: []string{
			".se_publishDate",
			".date",
			"span.blog_date",
		},
	}

	tagSelectors = fieldSelectors{
		Field: "tags",
		Candidates: []string{
			".tag_area a",
			".post_tag a",
		},
	}
)

// lazySrcAttrs are the attributes checked, in order, for an image source.
var lazySrcAttrs = []string{"src", "data-src", "data-lazy-src"}
