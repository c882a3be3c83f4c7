package intent

// Signal tables. Matching is case-insensitive substring over the raw
// keyword. Substring semantics are deliberate: "pricey" counts as a price
// signal the same way the SERP treats it.

// intentSignals drive primary/secondary classification.
var intentSignals = map[Intent][]string{
	Informational: {"what", "how", "why", "guide", "tutorial", "vs", "examples"},
	Commercial:    {"best", "top", "review", "compare", "alternative"},
	Transactional: {"buy", "price", "cheap", "deal", "discount", "ship", "order"},
	Navigational:  {"login", "sign in", "account", "official"},
}

// formatSignals drive content-format detection, both against the keyword
// and against the top SERP titles.
var formatSignals = map[Format][]string{
	FormatHowTo:          {"how to", "how do", "step by step", "diy", "tutorial"},
	FormatListPost:       {"best", "top", "list", "ways", "tips", "ideas"},
	FormatComparison:     {"vs", "versus", "compare", "comparison", "difference between"},
	FormatUltimateGuide:  {"ultimate guide", "complete guide", "definitive guide", "everything you need"},
	FormatCaseStudy:      {"case study", "case studies", "success story", "lessons from"},
	FormatQuestionAnswer: {"what is", "what are", "faq", "questions about", "answered"},
}

// journeySignals are explicit journey-stage markers checked before the
// intent-based fallback mapping.
var journeySignals = map[JourneyStage][]string{
	Awareness:     {"what is", "introduction to", "basics", "beginner"},
	Consideration: {"compare", "comparison", "vs", "alternatives", "which"},
	Decision:      {"buy", "discount", "coupon", "pricing", "near me"},
	Retention:     {"troubleshoot", "warranty", "manual", "cancel subscription"},
}

// snippetSignals pick the featured-snippet layout. Checked in declaration
// order; the leading-interrogative paragraph rule applies only when none
// match.
var snippetSignals = []struct {
	Type    SnippetType
	Signals []string
}{
	{SnippetDefinition, []string{"what is", "definition", "meaning", "define"}},
	{SnippetList, []string{"best", "top", "list", "ways", "tips", "steps", "ideas", "examples"}},
	{SnippetTable, []string{"vs", "versus", "comparison", "compare", "price", "cost", "chart"}},
}

// interrogatives are the question openers that suggest a paragraph snippet.
var interrogatives = []string{"how", "what", "why", "when", "where"}

// localSignals flag keywords with local search intent.
var localSignals = []string{"near me", "nearby", "closest", "in my area", "local"}

// visualSignals flag keywords that call for rich media beyond the default.
var visualSignals = []string{"pictures", "photos", "images", "video", "diagram", "infographic"}

// defaultWordCounts is the per-intent ideal word count used when the SERP
// carries no competitor word counts.
var defaultWordCounts = map[Intent]int{
	Informational: 2000,
	Commercial:    2500,
	Transactional: 1500,
	Navigational:  1000,
}

// headingTemplates is one recommended heading structure per primary intent.
// %s is the title-cased keyword.
var headingTemplates = map[Intent][]string{
	Informational: {
		"What Is %s?",
		"How %s Works",
		"Step-by-Step: %s",
		"Common Mistakes to Avoid",
		"Tools and Supplies You Need",
		"Frequently Asked Questions",
	},
	Commercial: {
		"%s: Our Top Picks",
		"How We Picked the Best",
		"Detailed Reviews",
		"Comparison at a Glance",
		"Which One Is Right for You?",
		"Frequently Asked Questions",
	},
	Transactional: {
		"%s: What to Know Before You Buy",
		"Pricing and Where to Buy",
		"Current Deals and Discounts",
		"Shipping, Returns, and Warranty",
		"Final Checklist Before Purchase",
		"Frequently Asked Questions",
	},
	Navigational: {
		"%s: Official Resources",
		"How to Sign In",
		"Setting Up Your Account",
		"Troubleshooting Access Problems",
		"Contact and Support",
		"Frequently Asked Questions",
	},
}
