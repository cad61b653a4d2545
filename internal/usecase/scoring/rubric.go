package scoring

import (
	"fmt"
	"strings"

	"github.com/johnquangdev/meeting-intel/internal/domain/entities"
)

// Criterion names one opportunity rubric pass
type Criterion string

const (
	CriterionNow     Criterion = "now"
	CriterionNext    Criterion = "next"
	CriterionMeasure Criterion = "measure"
	CriterionBlocker Criterion = "blocker"
	CriterionFit     Criterion = "fit"
)

// Non-criterion passes, used in logs and metrics
const (
	passTaxonomy = "taxonomy"
	passClient   = "client"
)

// Tracks, used in logs and metrics
const (
	trackOpportunity = "opportunity"
	trackSales       = "sales"
)

// OpportunityCriteria lists the boolean criteria in reporting order
var OpportunityCriteria = []Criterion{
	CriterionNow,
	CriterionNext,
	CriterionMeasure,
	CriterionBlocker,
	CriterionFit,
}

const systemInstruction = "You are an expert at analyzing business meetings for hiring and organizational needs. Always respond with valid JSON."

func userMessage(prompt, context string) string {
	return prompt + "\n\nTranscript:\n" + context + "\n\nPlease respond in JSON format."
}

const themOnly = `IMPORTANT: Only analyze what the CLIENT says (lines from "Them:"). Ignore statements made by our own representative ("Me:").`

const sectionSchema = `Return JSON with exactly these keys:
{"qualified": true or false, "reason": "one sentence", "summary": "what the client said, or Not stated.", "evidence": "verbatim client quote of at most 25 words, or null"}`

var opportunityPrompts = map[Criterion]string{
	CriterionNow: `Assess the NOW criterion: does the client have an immediate, present-day talent need?

` + themOnly + `

Qualify when the client describes any of:
- their current scale and team shape, with gaps that need filling now
- critical hires they must make immediately
- a need for flexible or interim talent (our Bench offering)
- an internal talent acquisition function that is struggling (our Partnership offering)
- roles whose absence is blocking growth today

Do not qualify on vague future intentions.

` + sectionSchema,

	CriterionNext: `Assess the NEXT criterion: is the client planning a change that will need our help over the coming months?

` + themOnly + `

Qualify when the client describes any of:
- becoming something new, such as a new proposition, model or identity (our Transform offering)
- a wish to work ON the business rather than IN it
- mergers, acquisitions, partnerships or an exit (our Ventures offering)
- a longer-term talent strategy or organisational redesign
- expansion into new markets, locations or services

` + sectionSchema,

	CriterionMeasure: `Assess the MEASURE criterion: has the client said how success would be measured?

` + themOnly + `

Qualify when the client names concrete success measures such as:
- financial targets (revenue, margin, valuation, cost)
- adoption, NPS or client satisfaction figures
- operational measures (time to hire, retention, utilisation)
- a timeframe in which results are expected

` + sectionSchema,

	CriterionBlocker: `Assess the BLOCKER criterion: has the client named what is stopping them?

` + themOnly + `

Qualify when the client names a concrete blocker in any of these areas:
- Access: cannot find, attract or afford the right people
- Transform: lacks the capability, clarity or bandwidth to change the business
- Ventures: lacks the networks, valuation insight or deal experience to grow by acquisition or partnership

` + sectionSchema,

	CriterionFit: `Assess the FIT criterion: which of our services fit the client's needs?

` + themOnly + `

Our services:
- ACCESS: The Search (permanent hiring), The Bench (flexible talent), The Partnership (embedded talent acquisition)
- TRANSFORM: Transform Workshop, Shape of You (organisation design), Partnership+
- VENTURES: Fake or Fortune (valuation readiness), The Closer (deal support), The Intro (introductions to investors and acquirers)

Qualify when at least one service clearly fits a need the client expressed. List between 1 and 3 of the service groups ACCESS, TRANSFORM, VENTURES.

Return JSON with exactly these keys:
{"qualified": true or false, "reason": "one sentence", "summary": "the need and the fitting service", "services": ["Access", "Transform", "Ventures"], "evidence": "verbatim client quote of at most 25 words, or null"}`,
}

// ChallengesVocabulary is the closed set of challenge tags
var ChallengesVocabulary = []string{
	"Diversify product & services",
	"Expand locations",
	"Succession planning",
	"Shrinking margin",
	"Spikes in workload",
	"Losing revenue cos lack of staff",
	"Needing specialists in short notice",
	"Maintaining creative quality without ballooning overheads",
	"Margins eroding as business scales",
	"Misalignment between creating value and delivering value",
	"Unsure how to value their business",
	"Not knowing which businesses are right to buy / acquire",
	"Lacking intros to PE or M&A firms",
	"Missing out on growth opportunities as they can't move fast enough",
	"Don't have networks in specific locations",
	"Diversify product",
	"Consolidating agencies",
	"Elevating creativity",
}

// ResultsVocabulary is the closed set of desired-result tags
var ResultsVocabulary = []string{
	"Revenue Growth",
	"Win rate on pitches %",
	"Access to new markets and clients",
	"Ability to take on more complex higher margin work",
	"Lower fixed cost base through flexible talent models",
	"More profit per head",
	"Reduced talent churn",
	"Reduced inefficiencies",
	"Avoiding mishires",
	"Avoiding stagnancy",
	"Smooth succession protecting value and continuity",
	"Built proprietary products that lead to higher valuations",
	"Faster hiring in scarce talent pools",
	"Foresight of costs with flexible talent models",
	"Foresight of resource with always-on talent",
	"Scaled systems that mean we focus on compounding our strengths",
	"Won industry accolades",
	"Increased quality of output meaning more client wins",
	"Stronger brand reputation and client stickiness",
	"Stronger employer brand reputation and talent stickiness",
	"Distinctive talent advantage that competitors can't replicate easily",
}

// OfferingsVocabulary is the closed set of client business types
var OfferingsVocabulary = []string{
	"Creative & Design",
	"Branding Consultancy",
	"Product",
	"Content Studio",
	"Production Company",
	"Influencer / Creator agency",
	"Media",
	"Performance Marketing",
	"PR / Comms",
	"Experiential",
	"Social",
	"Innovation",
	"Data",
	"E-Commerce",
	"AI Automation",
	"Brand",
	"Health & Pharma",
	"B2B",
	"Sports & Entertainment",
	"Sustainability agency",
	"Luxury & Fashion",
	"Gaming",
	"Fintech",
	"Other",
}

func bulletList(items []string) string {
	var b strings.Builder
	for _, item := range items {
		b.WriteString("- ")
		b.WriteString(item)
		b.WriteString("\n")
	}
	return b.String()
}

var taxonomyPrompt = `Tag this meeting against three fixed vocabularies.

` + themOnly + `

CHALLENGES (choose 0 to 5, copy labels exactly):
` + bulletList(ChallengesVocabulary) + `
RESULTS the client wants (choose 0 to 5, copy labels exactly):
` + bulletList(ResultsVocabulary) + `
OFFERING, the client's own type of business (choose exactly 1, or null if unclear):
` + bulletList(OfferingsVocabulary) + `
Return JSON with exactly these keys:
{"challenges": ["..."], "results": ["..."], "offering": "..." or null}`

const clientPrompt = `Identify the client organisation in this meeting. The client is the company the "Them:" speakers work for, never our own firm.

Return JSON with exactly these keys:
{"client": "company name or null", "domain": "industry, for example fintech or healthcare, or null", "size": "startup, scaleup, enterprise or null"}`

const salesFocus = `IMPORTANT: Only analyze what OUR REPRESENTATIVE says (lines from "Me:"). The client ("Them:") is context only.`

const salesSchema = `Return JSON with exactly these keys:
{"qualified": true or false, "score": 0 to 3, "reason": "one sentence", "evidence": "verbatim quote from our representative of at most 25 words, or null", "coaching_note": "one specific suggestion, or null"}`

type salesRubric struct {
	focus string
	guide string
}

var salesRubrics = map[entities.SalesCriterion]salesRubric{
	entities.SalesIntroduction: {
		focus: "how the representative opened the meeting: introduction, framing of the conversation, an agenda, and permission to ask probing questions",
		guide: `3 = clear intro, framed the purpose, set an agenda and asked permission to probe
2 = intro and purpose but no agenda or permission
1 = brief intro with little framing
0 = no introduction or framing`,
	},
	entities.SalesDiscovery: {
		focus: "how deeply the representative uncovered the client's business and talent challenges, their impact, the emotional drivers, and what has already been tried",
		guide: `3 = layered follow-up questions that surfaced challenges, impact, emotional drivers and past attempts
2 = good questions on challenges and impact but shallow on drivers or history
1 = surface questions only
0 = no discovery`,
	},
	entities.SalesScoping: {
		focus: "whether the representative scoped the opportunity: budgets, hiring volumes, the hiring process, stakeholders, the buying process and timeline",
		guide: `3 = budget, volumes, stakeholders, buying process and timeline all covered
2 = most of these covered
1 = one or two touched on
0 = no scoping`,
	},
	entities.SalesSolution: {
		focus: "how the representative mapped the client's problems to our products (Partnership, Bench, Search, Ventures), talked in outcomes, positioned as an advisor and tailored the pitch",
		guide: `3 = each problem mapped to a product with outcomes, tailored and advisory
2 = relevant products mentioned with some tailoring
1 = generic pitch
0 = no solution positioning`,
	},
	entities.SalesCommercial: {
		focus: "how confidently the representative handled fees: stating them plainly, anchoring them to value, explaining payment structure and aligning with budget",
		guide: `3 = fees stated confidently, tied to value, structure explained, budget aligned
2 = fees stated with some value framing
1 = fees mentioned hesitantly or vaguely
0 = commercials avoided`,
	},
	entities.SalesCaseStudies: {
		focus: "whether the representative used specific, relevant case studies with outcomes and a story",
		guide: `3 = specific and relevant case studies with measurable outcomes, told as stories
2 = relevant examples with some outcomes
1 = vague references to past clients
0 = no case studies`,
	},
	entities.SalesNextSteps: {
		focus: "how the representative closed: summarising, agreeing a dated next step, confirming decision-makers and the buying process, and keeping momentum",
		guide: `3 = summary, dated next step, decision-makers and process confirmed
2 = clear next step without a date or without decision-makers
1 = vague follow-up
0 = no next steps`,
	},
	entities.SalesStrategicContext: {
		focus: "whether the representative explored strategic context: business direction, organisation design and market, talent bottlenecks, what success looks like in 12 months, and cross-sell openings",
		guide: `3 = strategic direction, bottlenecks and 12-month success explored with cross-sell identified
2 = some strategic questions asked
1 = strategy touched on in passing
0 = no strategic context`,
	},
}

func salesPrompt(c entities.SalesCriterion) string {
	r := salesRubrics[c]
	return fmt.Sprintf(`Assess our representative's %s in this sales meeting: %s.

%s

Scoring guide:
%s

%s`, c.DisplayName(), r.focus, salesFocus, r.guide, salesSchema)
}
