package models

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Lockable character attribute names, as used in LockedAttributes.
const (
	AttrName                = "name"
	AttrAliases             = "aliases"
	AttrRole                = "role"
	AttrStatus              = "status"
	AttrFirstAppearsBook    = "first_appears_book"
	AttrRetiredInBook       = "retired_in_book"
	AttrCorePersonality     = "core_personality"
	AttrPhysicalDescription = "physical_description"
	AttrDialogueStyle       = "dialogue_style"
)

var characterAttributes = []any{
	AttrName, AttrAliases, AttrRole, AttrStatus, AttrFirstAppearsBook,
	AttrRetiredInBook, AttrCorePersonality, AttrPhysicalDescription, AttrDialogueStyle,
}

// Personality is the stable inner profile of a character.
type Personality struct {
	Traits  []string `json:"traits"`
	Values  []string `json:"values"`
	Fears   []string `json:"fears"`
	Desires []string `json:"desires"`
}

func (p *Personality) normalize() {
	p.Traits = NormalizeSet(p.Traits)
	p.Values = NormalizeSet(p.Values)
	p.Fears = NormalizeSet(p.Fears)
	p.Desires = NormalizeSet(p.Desires)
}

// Character is a long-lived person in the series.
type Character struct {
	ID               string          `json:"id"`
	SeriesID         string          `json:"series_id"`
	Name             string          `json:"name"`
	Aliases          []string        `json:"aliases"`
	Role             CharacterRole   `json:"role"`
	Status           CharacterStatus `json:"status"`
	FirstAppearsBook int             `json:"first_appears_book"`
	// RetiredInBook is the last book a retired character is active in.
	// Nil on a retired character hides it from every book.
	RetiredInBook       *int        `json:"retired_in_book,omitempty"`
	CorePersonality     Personality `json:"core_personality"`
	PhysicalDescription string      `json:"physical_description"`
	DialogueStyle       string      `json:"dialogue_style"`
	CanonLockLevel      LockLevel   `json:"canon_lock_level"`
	LockedAttributes    []string    `json:"locked_attributes"`
	Version             int         `json:"version"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

// Normalize trims strings, deduplicates sets and fills defaults.
func (c *Character) Normalize() {
	c.Name = strings.TrimSpace(c.Name)
	c.Aliases = NormalizeSet(c.Aliases)
	c.CorePersonality.normalize()
	c.PhysicalDescription = strings.TrimSpace(c.PhysicalDescription)
	c.DialogueStyle = strings.TrimSpace(c.DialogueStyle)
	c.LockedAttributes = NormalizeSet(c.LockedAttributes)
	if c.Status == "" {
		c.Status = StatusActive
	}
	if c.CanonLockLevel == "" {
		c.CanonLockLevel = LockSoft
	}
}

// Validate validates the character.
func (c Character) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.SeriesID, validation.Required),
		validation.Field(&c.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&c.Role, validation.Required, validation.In(characterRoles...)),
		validation.Field(&c.Status, validation.Required, validation.In(characterStatuses...)),
		validation.Field(&c.FirstAppearsBook, requiredBook...),
		validation.Field(&c.RetiredInBook, notBefore(c.FirstAppearsBook, "first_appears_book")),
		validation.Field(&c.CanonLockLevel, validation.Required, validation.In(lockLevels...)),
		validation.Field(&c.LockedAttributes, validation.Each(validation.In(characterAttributes...))),
	)
}

// IsLocked reports whether attr is in the character's locked set.
func (c Character) IsLocked(attr string) bool {
	for _, a := range c.LockedAttributes {
		if a == attr {
			return true
		}
	}
	return false
}

// CharacterPatch lists the editable character fields. Nil means unchanged.
type CharacterPatch struct {
	Name                *string          `json:"name,omitempty"`
	Aliases             []string         `json:"aliases,omitempty"`
	Role                *CharacterRole   `json:"role,omitempty"`
	Status              *CharacterStatus `json:"status,omitempty"`
	FirstAppearsBook    *int             `json:"first_appears_book,omitempty"`
	RetiredInBook       *int             `json:"retired_in_book,omitempty"`
	CorePersonality     *Personality     `json:"core_personality,omitempty"`
	PhysicalDescription *string          `json:"physical_description,omitempty"`
	DialogueStyle       *string          `json:"dialogue_style,omitempty"`
	CanonLockLevel      *LockLevel       `json:"canon_lock_level,omitempty"`
	LockedAttributes    []string         `json:"locked_attributes,omitempty"`
}

// Touched returns the lockable attribute names the patch modifies.
func (p CharacterPatch) Touched() []string {
	var out []string
	if p.Name != nil {
		out = append(out, AttrName)
	}
	if p.Aliases != nil {
		out = append(out, AttrAliases)
	}
	if p.Role != nil {
		out = append(out, AttrRole)
	}
	if p.Status != nil {
		out = append(out, AttrStatus)
	}
	if p.FirstAppearsBook != nil {
		out = append(out, AttrFirstAppearsBook)
	}
	if p.RetiredInBook != nil {
		out = append(out, AttrRetiredInBook)
	}
	if p.CorePersonality != nil {
		out = append(out, AttrCorePersonality)
	}
	if p.PhysicalDescription != nil {
		out = append(out, AttrPhysicalDescription)
	}
	if p.DialogueStyle != nil {
		out = append(out, AttrDialogueStyle)
	}
	return out
}

// Apply copies the set fields onto c.
func (p CharacterPatch) Apply(c *Character) {
	if p.Name != nil {
		c.Name = *p.Name
	}
	if p.Aliases != nil {
		c.Aliases = p.Aliases
	}
	if p.Role != nil {
		c.Role = *p.Role
	}
	if p.Status != nil {
		c.Status = *p.Status
	}
	if p.FirstAppearsBook != nil {
		c.FirstAppearsBook = *p.FirstAppearsBook
	}
	if p.RetiredInBook != nil {
		c.RetiredInBook = intPtr(*p.RetiredInBook)
	}
	if p.CorePersonality != nil {
		c.CorePersonality = *p.CorePersonality
	}
	if p.PhysicalDescription != nil {
		c.PhysicalDescription = *p.PhysicalDescription
	}
	if p.DialogueStyle != nil {
		c.DialogueStyle = *p.DialogueStyle
	}
	if p.CanonLockLevel != nil {
		c.CanonLockLevel = *p.CanonLockLevel
	}
	if p.LockedAttributes != nil {
		c.LockedAttributes = p.LockedAttributes
	}
}
