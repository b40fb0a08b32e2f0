package game

// Board dimensions and match constants.
const (
	FieldSlots      = 3
	InitialHandSize = 5
	MaxHandSize     = 7
	LosingDamage    = 10
	DeckSize        = 40
	MaxCopies       = 3

	// DeckTriggerLimit caps trigger-tagged cards per deck.
	DeckTriggerLimit = 8

	// LeaderTarget is the client-side "attack the leader" sentinel. It is
	// normalised to the attacker's own lane. As an ability slot it names the leader.
	LeaderTarget = -1
)

// Zone identifies where a card instance currently lives.
type Zone string

const (
	ZoneNone    Zone = ""
	ZoneDeck    Zone = "deck"
	ZoneHand    Zone = "hand"
	ZoneDiscard Zone = "discard"
	ZoneField   Zone = "field"
	ZoneDamage  Zone = "damage"
	ZoneSkill   Zone = "skill"
	ZoneItem    Zone = "item"
	ZoneLeader  Zone = "leader"
)

// PlayerState is one seat of a match.
type PlayerState struct {
	ID       string
	Username string
	Seat     int
	IsCPU    bool

	HP       int
	Leader   *CardInstance
	Level    int
	Awakened bool

	Hand      []*CardInstance
	Deck      []*CardInstance // index 0 is the top
	Discard   []*CardInstance
	Field     [FieldSlots]*CardInstance
	Damage    []*CardInstance
	SkillZone []*CardInstance

	UnitsPlayed      int
	PlacedInSlot     [FieldSlots]int
	LeaderActiveUsed bool
	MulliganDone     bool
	Connected        bool
}

// SizeLimit is the maximum total cost the player may have in play.
func (p *PlayerState) SizeLimit() int {
	return p.Level + len(p.Damage)
}

// UsedCost sums field units, their attachments and the skill zone.
func (p *PlayerState) UsedCost() int {
	total := 0
	for _, u := range p.Field {
		if u != nil {
			total += u.attachedCost()
		}
	}
	for _, s := range p.SkillZone {
		total += s.Card.Cost
	}
	return total
}

func (p *PlayerState) syncHP() {
	p.HP = len(p.Damage)
}

// unitCount returns the number of occupied slots.
func (p *PlayerState) unitCount() int {
	n := 0
	for _, u := range p.Field {
		if u != nil {
			n++
		}
	}
	return n
}

// units returns occupied slots in lane order.
func (p *PlayerState) units() []*CardInstance {
	out := make([]*CardInstance, 0, FieldSlots)
	for _, u := range p.Field {
		if u != nil {
			out = append(out, u)
		}
	}
	return out
}

func (p *PlayerState) slotOf(id string) int {
	for i, u := range p.Field {
		if u != nil && u.ID == id {
			return i
		}
	}
	return -1
}

func (p *PlayerState) firstEmptySlot() int {
	for i, u := range p.Field {
		if u == nil {
			return i
		}
	}
	return -1
}

// hostOf returns the field slot whose unit carries the item.
func (p *PlayerState) hostOf(itemID string) int {
	for i, u := range p.Field {
		if u == nil {
			continue
		}
		for _, item := range u.Attachments {
			if item.ID == itemID {
				return i
			}
		}
	}
	return -1
}

// draw pops the top of the deck into hand. It returns nil on an empty deck.
func (p *PlayerState) draw() *CardInstance {
	if len(p.Deck) == 0 {
		return nil
	}
	card := p.Deck[0]
	p.Deck = p.Deck[1:]
	p.Hand = append(p.Hand, card)
	return card
}

func removeByID(cards []*CardInstance, id string) ([]*CardInstance, *CardInstance) {
	for i, c := range cards {
		if c.ID == id {
			out := append(cards[:i:i], cards[i+1:]...)
			return out, c
		}
	}
	return cards, nil
}

func indexByID(cards []*CardInstance, id string) int {
	for i, c := range cards {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (p *PlayerState) takeFromHand(id string) *CardInstance {
	var card *CardInstance
	p.Hand, card = removeByID(p.Hand, id)
	return card
}

func (p *PlayerState) takeFromDeck(id string) *CardInstance {
	var card *CardInstance
	p.Deck, card = removeByID(p.Deck, id)
	return card
}

func (p *PlayerState) takeFromDiscard(id string) *CardInstance {
	var card *CardInstance
	p.Discard, card = removeByID(p.Discard, id)
	return card
}

func (p *PlayerState) takeFromSkillZone(id string) *CardInstance {
	var card *CardInstance
	p.SkillZone, card = removeByID(p.SkillZone, id)
	return card
}

// toDiscard puts a card on top of the discard pile with its modifiers cleared.
func (p *PlayerState) toDiscard(cards ...*CardInstance) {
	for _, c := range cards {
		c.resetForZoneChange()
		c.Recycle = false
		p.Discard = append(p.Discard, c)
	}
}

// removeFromField empties the slot and discards the unit's attachments.
func (p *PlayerState) removeFromField(slot int) *CardInstance {
	unit := p.Field[slot]
	if unit == nil {
		return nil
	}
	p.Field[slot] = nil
	attachments := unit.Attachments
	unit.resetForZoneChange()
	p.toDiscard(attachments...)
	return unit
}

// locate finds a card instance in any of the player's zones.
func (p *PlayerState) locate(id string) (*CardInstance, Zone) {
	if p.Leader != nil && p.Leader.ID == id {
		return p.Leader, ZoneLeader
	}
	for _, u := range p.Field {
		if u == nil {
			continue
		}
		if u.ID == id {
			return u, ZoneField
		}
		for _, item := range u.Attachments {
			if item.ID == id {
				return item, ZoneItem
			}
		}
	}
	zones := []struct {
		zone  Zone
		cards []*CardInstance
	}{
		{ZoneHand, p.Hand},
		{ZoneDeck, p.Deck},
		{ZoneDiscard, p.Discard},
		{ZoneDamage, p.Damage},
		{ZoneSkill, p.SkillZone},
	}
	for _, z := range zones {
		if i := indexByID(z.cards, id); i >= 0 {
			return z.cards[i], z.zone
		}
	}
	return nil, ZoneNone
}

// cardIDs lists every card instance the player owns, across all zones.
func (p *PlayerState) cardIDs() []string {
	var ids []string
	add := func(cards []*CardInstance) {
		for _, c := range cards {
			ids = append(ids, c.ID)
		}
	}
	if p.Leader != nil {
		ids = append(ids, p.Leader.ID)
	}
	add(p.Hand)
	add(p.Deck)
	add(p.Discard)
	add(p.Damage)
	add(p.SkillZone)
	for _, u := range p.Field {
		if u != nil {
			ids = append(ids, u.ID)
			add(u.Attachments)
		}
	}
	return ids
}
