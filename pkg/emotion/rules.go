package emotion

// UIAdaptations toggle presentation changes. Some of them map to body classes.
type UIAdaptations struct {
	SimplifyNavigation   bool `json:"simplifyNavigation,omitempty"`
	HighlightHelp        bool `json:"highlightHelp,omitempty"`
	ReduceChoices        bool `json:"reduceChoices,omitempty"`
	ShowProgress         bool `json:"showProgress,omitempty"`
	ShowMoreDetails      bool `json:"showMoreDetails,omitempty"`
	EnableComparisons    bool `json:"enableComparisons,omitempty"`
	HighlightSpecs       bool `json:"highlightSpecs,omitempty"`
	ShowDiscovery        bool `json:"showDiscovery,omitempty"`
	HighlightNew         bool `json:"highlightNew,omitempty"`
	EnableExploration    bool `json:"enableExploration,omitempty"`
	ShowComparison       bool `json:"showComparison,omitempty"`
	HighlightDifferences bool `json:"highlightDifferences,omitempty"`
	ShowDecisionSupport  bool `json:"showDecisionSupport,omitempty"`
}

type ContentAdaptations struct {
	PrioritizePopular     bool `json:"prioritizePopular,omitempty"`
	ShowReviews           bool `json:"showReviews,omitempty"`
	EmphasizeGuarantees   bool `json:"emphasizeGuarantees,omitempty"`
	ShowDetailedInfo      bool `json:"showDetailedInfo,omitempty"`
	PrioritizeEducational bool `json:"prioritizeEducational,omitempty"`
	ShowRelatedProducts   bool `json:"showRelatedProducts,omitempty"`
	ShowCurated           bool `json:"showCurated,omitempty"`
	PrioritizeStories     bool `json:"prioritizeStories,omitempty"`
	ShowCategories        bool `json:"showCategories,omitempty"`
	PrioritizeKeyBenefits bool `json:"prioritizeKeyBenefits,omitempty"`
	ShowSocialProof       bool `json:"showSocialProof,omitempty"`
	HighlightValue        bool `json:"highlightValue,omitempty"`
}

type InteractionAdaptations struct {
	LargerClickTargets   bool `json:"largerClickTargets,omitempty"`
	ClearerCTAs          bool `json:"clearerCtas,omitempty"`
	ReduceSteps          bool `json:"reduceSteps,omitempty"`
	AllowTakeTime        bool `json:"allowTakeTime,omitempty"`
	SaveForLater         bool `json:"saveForLater,omitempty"`
	ShowProgressSave     bool `json:"showProgressSave,omitempty"`
	EncourageExploration bool `json:"encourageExploration,omitempty"`
	ShowSimilar          bool `json:"showSimilar,omitempty"`
	EnableBrowsing       bool `json:"enableBrowsing,omitempty"`
	SimplifyChoice       bool `json:"simplifyChoice,omitempty"`
	ShowRecommendations  bool `json:"showRecommendations,omitempty"`
	EnableQuickDecision  bool `json:"enableQuickDecision,omitempty"`
}

// Adaptation is the rule set of one label. It is a plain value; copies are
// independent.
type Adaptation struct {
	UI          UIAdaptations          `json:"ui"`
	Content     ContentAdaptations     `json:"content"`
	Interaction InteractionAdaptations `json:"interactions"`
}

// Body classes applied for adaptation toggles.
const (
	ClassSimplifiedNav = "ct-simplified-nav"
	ClassHighlightHelp = "ct-highlight-help"
	ClassDetailedView  = "ct-detailed-view"
	ClassLargeTargets  = "ct-large-targets"
	ClassDiscoveryMode = "ct-discovery-mode"
)

// Classes lists the body classes this adaptation turns on.
func (a Adaptation) Classes() []string {
	classes := []string{}
	if a.UI.SimplifyNavigation {
		classes = append(classes, ClassSimplifiedNav)
	}
	if a.UI.HighlightHelp {
		classes = append(classes, ClassHighlightHelp)
	}
	if a.UI.ShowMoreDetails {
		classes = append(classes, ClassDetailedView)
	}
	if a.Interaction.LargerClickTargets {
		classes = append(classes, ClassLargeTargets)
	}
	if a.UI.ShowDiscovery {
		classes = append(classes, ClassDiscoveryMode)
	}
	return classes
}

var rules = [labelCount]Adaptation{
	Frustrated: {
		UI:          UIAdaptations{SimplifyNavigation: true, HighlightHelp: true, ReduceChoices: true, ShowProgress: true},
		Content:     ContentAdaptations{PrioritizePopular: true, ShowReviews: true, EmphasizeGuarantees: true},
		Interaction: InteractionAdaptations{LargerClickTargets: true, ClearerCTAs: true, ReduceSteps: true},
	},
	Contemplative: {
		UI:          UIAdaptations{ShowMoreDetails: true, EnableComparisons: true, HighlightSpecs: true},
		Content:     ContentAdaptations{ShowDetailedInfo: true, PrioritizeEducational: true, ShowRelatedProducts: true},
		Interaction: InteractionAdaptations{AllowTakeTime: true, SaveForLater: true, ShowProgressSave: true},
	},
	Curious: {
		UI:          UIAdaptations{ShowDiscovery: true, HighlightNew: true, EnableExploration: true},
		Content:     ContentAdaptations{ShowCurated: true, PrioritizeStories: true, ShowCategories: true},
		Interaction: InteractionAdaptations{EncourageExploration: true, ShowSimilar: true, EnableBrowsing: true},
	},
	Deciding: {
		UI:          UIAdaptations{ShowComparison: true, HighlightDifferences: true, ShowDecisionSupport: true},
		Content:     ContentAdaptations{PrioritizeKeyBenefits: true, ShowSocialProof: true, HighlightValue: true},
		Interaction: InteractionAdaptations{SimplifyChoice: true, ShowRecommendations: true, EnableQuickDecision: true},
	},
	Engaged: {
		UI:          UIAdaptations{ShowMoreDetails: true, HighlightNew: true},
		Content:     ContentAdaptations{ShowRelatedProducts: true, ShowCurated: true},
		Interaction: InteractionAdaptations{ShowRecommendations: true, SaveForLater: true},
	},
	Delighted: {
		UI:          UIAdaptations{ShowDiscovery: true, HighlightNew: true},
		Content:     ContentAdaptations{ShowSocialProof: true, ShowCurated: true},
		Interaction: InteractionAdaptations{ShowSimilar: true, EnableQuickDecision: true},
	},
	Confident: {
		UI:          UIAdaptations{ShowProgress: true},
		Content:     ContentAdaptations{PrioritizeKeyBenefits: true, HighlightValue: true},
		Interaction: InteractionAdaptations{ReduceSteps: true, EnableQuickDecision: true},
	},
	Hesitant: {
		UI:          UIAdaptations{HighlightHelp: true, ShowDecisionSupport: true},
		Content:     ContentAdaptations{ShowReviews: true, EmphasizeGuarantees: true, ShowSocialProof: true},
		Interaction: InteractionAdaptations{AllowTakeTime: true, SaveForLater: true},
	},
	Rushed: {
		UI:          UIAdaptations{SimplifyNavigation: true, ReduceChoices: true},
		Content:     ContentAdaptations{PrioritizePopular: true, PrioritizeKeyBenefits: true},
		Interaction: InteractionAdaptations{LargerClickTargets: true, ReduceSteps: true, EnableQuickDecision: true},
	},
	Relaxed: {
		UI:          UIAdaptations{ShowDiscovery: true, ShowMoreDetails: true},
		Content:     ContentAdaptations{PrioritizeStories: true, PrioritizeEducational: true},
		Interaction: InteractionAdaptations{EncourageExploration: true, AllowTakeTime: true},
	},
}

// RulesFor returns the adaptation rule set of l.
func RulesFor(l Label) (Adaptation, bool) {
	if !l.Valid() {
		return Adaptation{}, false
	}
	return rules[l], true
}
