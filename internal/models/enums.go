package models

// CharacterRole is the narrative weight of a character.
type CharacterRole string

const (
	RoleProtagonist   CharacterRole = "protagonist"
	RoleAntagonist    CharacterRole = "antagonist"
	RoleDeuteragonist CharacterRole = "deuteragonist"
	RoleSupporting    CharacterRole = "supporting"
	RoleMinor         CharacterRole = "minor"
	RoleBackground    CharacterRole = "background"
)

var characterRoles = []any{
	RoleProtagonist, RoleAntagonist, RoleDeuteragonist,
	RoleSupporting, RoleMinor, RoleBackground,
}

// CharacterStatus is where a character stands in the series.
type CharacterStatus string

const (
	StatusActive      CharacterStatus = "active"
	StatusDeceased    CharacterStatus = "deceased"
	StatusMissing     CharacterStatus = "missing"
	StatusRetired     CharacterStatus = "retired"
	StatusTransformed CharacterStatus = "transformed"
)

var characterStatuses = []any{
	StatusActive, StatusDeceased, StatusMissing, StatusRetired, StatusTransformed,
}

// ElementType classifies a world element.
type ElementType string

const (
	ElementGeography   ElementType = "geography"
	ElementCulture     ElementType = "culture"
	ElementReligion    ElementType = "religion"
	ElementMagicSystem ElementType = "magic_system"
	ElementTechnology  ElementType = "technology"
	ElementPolitical   ElementType = "political"
	ElementEconomic    ElementType = "economic"
	ElementHistorical  ElementType = "historical"
	ElementMyth        ElementType = "myth"
	ElementCustom      ElementType = "custom"
)

var elementTypes = []any{
	ElementGeography, ElementCulture, ElementReligion, ElementMagicSystem,
	ElementTechnology, ElementPolitical, ElementEconomic, ElementHistorical,
	ElementMyth, ElementCustom,
}

// ArcType classifies a narrative arc.
type ArcType string

const (
	ArcCharacter    ArcType = "character"
	ArcPlot         ArcType = "plot"
	ArcThematic     ArcType = "thematic"
	ArcRelationship ArcType = "relationship"
	ArcWorld        ArcType = "world"
)

var arcTypes = []any{ArcCharacter, ArcPlot, ArcThematic, ArcRelationship, ArcWorld}

// RuleCategory groups canon rules by what they constrain.
type RuleCategory string

const (
	CategoryCharacter    RuleCategory = "character"
	CategoryWorld        RuleCategory = "world"
	CategoryPlot         RuleCategory = "plot"
	CategoryTimeline     RuleCategory = "timeline"
	CategoryRelationship RuleCategory = "relationship"
	CategorySystem       RuleCategory = "system"
)

var ruleCategories = []any{
	CategoryCharacter, CategoryWorld, CategoryPlot,
	CategoryTimeline, CategoryRelationship, CategorySystem,
}

// RuleType is the modality of a canon rule.
type RuleType string

const (
	RuleMust      RuleType = "must"
	RuleMustNot   RuleType = "must_not"
	RuleShould    RuleType = "should"
	RuleShouldNot RuleType = "should_not"
	RuleMay       RuleType = "may"
)

var ruleTypes = []any{RuleMust, RuleMustNot, RuleShould, RuleShouldNot, RuleMay}

// Prohibitive reports whether the rule forbids something.
func (t RuleType) Prohibitive() bool {
	return t == RuleMustNot || t == RuleShouldNot
}

// LockLevel is the enforcement strength of a canon rule, and for characters
// and world elements, how hard their locked attributes are to edit.
type LockLevel string

const (
	LockSuggestion LockLevel = "suggestion"
	LockSoft       LockLevel = "soft"
	LockHard       LockLevel = "hard"
	LockImmutable  LockLevel = "immutable"
)

var lockLevels = []any{LockSuggestion, LockSoft, LockHard, LockImmutable}

// Severity returns the violation severity the lock level maps to.
func (l LockLevel) Severity() Severity {
	switch l {
	case LockImmutable:
		return SeverityFatal
	case LockHard:
		return SeverityBlocking
	case LockSoft:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// Severity is how a violation affects acceptance of content.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityBlocking Severity = "blocking"
	SeverityFatal    Severity = "fatal"
)

// Blocks reports whether the severity prevents acceptance as-is.
func (s Severity) Blocks() bool {
	return s == SeverityBlocking || s == SeverityFatal
}

// Overridable reports whether an author override with a justification can
// lift the block.
func (s Severity) Overridable() bool {
	return s == SeverityBlocking
}
