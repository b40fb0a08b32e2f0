package game

import (
	"github.com/google/uuid"
)

// CardKind is the catalog category of a card.
type CardKind string

const (
	KindUnit   CardKind = "unit"
	KindSkill  CardKind = "skill"
	KindItem   CardKind = "item"
	KindLeader CardKind = "leader"
)

// Deckable reports whether cards of this kind may appear in a deck.
func (k CardKind) Deckable() bool {
	return k == KindUnit || k == KindSkill || k == KindItem
}

// CatalogCard is the immutable definition of a card. Instances share it.
type CatalogCard struct {
	ID        string
	Name      string
	Kind      CardKind
	Cost      int
	Power     int
	Hits      int
	Attribute string
	Text      string
	Keywords  Keywords
	Effects   []Effect
	// Trigger marks cards whose reveal as damage fires on-damage-reveal
	// and halts the remaining hits of that damage.
	Trigger bool
	// AwakenLevel is the leader level at which a leader awakens. 0 never awakens.
	AwakenLevel int
	// Victory lists catalog ids that, all present in the discard, win the match.
	Victory []string
}

// EffectsFor returns the effects bound to the given trigger.
func (c *CatalogCard) EffectsFor(trigger Trigger) []Effect {
	var out []Effect
	for _, eff := range c.Effects {
		if eff.Trigger == trigger {
			out = append(out, eff)
		}
	}
	return out
}

// CardInstance is one physical card in a match. Its ID is unique within the match.
type CardInstance struct {
	ID    string
	Card  *CatalogCard
	Owner int // seat index

	TempPower     int
	TempHits      int
	TempDebuff    int
	PowerOverride *int
	TempKeywords  Keywords

	Stunned            bool
	CannotAttack       bool
	AttackedThisTurn   bool
	UsedActiveThisTurn bool
	Recycle            bool

	Attachments []*CardInstance
}

func newCardInstance(card *CatalogCard, owner int) *CardInstance {
	return &CardInstance{
		ID:    uuid.NewString(),
		Card:  card,
		Owner: owner,
	}
}

// Name returns the catalog name.
func (ci *CardInstance) Name() string {
	if ci == nil || ci.Card == nil {
		return ""
	}
	return ci.Card.Name
}

// clearTurnModifiers drops modifiers that last until end of turn.
func (ci *CardInstance) clearTurnModifiers() {
	ci.TempPower = 0
	ci.TempHits = 0
	ci.TempDebuff = 0
	ci.TempKeywords = nil
}

// resetForZoneChange clears everything a card forgets when it leaves the field.
func (ci *CardInstance) resetForZoneChange() {
	ci.clearTurnModifiers()
	ci.PowerOverride = nil
	ci.Stunned = false
	ci.CannotAttack = false
	ci.AttackedThisTurn = false
	ci.UsedActiveThisTurn = false
	ci.Attachments = nil
}

// grantKeyword adds a temporary keyword.
func (ci *CardInstance) grantKeyword(k Keyword, value int) {
	if ci.TempKeywords == nil {
		ci.TempKeywords = make(Keywords)
	}
	if value <= 0 {
		value = 1
	}
	ci.TempKeywords[k] += value
}

// attachedCost is the cost of the unit plus all attached items.
func (ci *CardInstance) attachedCost() int {
	total := ci.Card.Cost
	for _, item := range ci.Attachments {
		total += item.Card.Cost
	}
	return total
}
