package analyzer

// stopwords are excluded from keyword-frequency topic extraction.
// English-centric; non-English topics degrade gracefully to raw
// frequency ranking.
var stopwords = map[string]bool{
	"about": true, "above": true, "after": true, "again": true,
	"against": true, "also": true, "among": true, "because": true,
	"been": true, "before": true, "being": true, "below": true,
	"between": true, "both": true, "cannot": true, "could": true,
	"does": true, "doing": true, "down": true, "during": true,
	"each": true, "every": true, "from": true, "further": true,
	"have": true, "having": true, "here": true, "himself": true,
	"herself": true, "into": true, "itself": true, "just": true,
	"more": true, "most": true, "much": true, "must": true,
	"only": true, "other": true, "over": true, "same": true,
	"shall": true, "should": true, "since": true, "some": true,
	"such": true, "than": true, "that": true, "their": true,
	"them": true, "then": true, "there": true, "these": true,
	"they": true, "this": true, "those": true, "through": true,
	"under": true, "until": true, "upon": true, "very": true,
	"were": true, "what": true, "when": true, "where": true,
	"which": true, "while": true, "will": true, "with": true,
	"within": true, "without": true, "would": true, "your": true,
	"yours": true,
}
