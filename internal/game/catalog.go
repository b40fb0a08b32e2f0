package game

import (
	"fmt"
	"os"
	"sort"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// catalogFile is the top-level YAML structure of catalog.yaml.
type catalogFile struct {
	Cards []cardRecord `yaml:"cards"`
	Decks []deckRecord `yaml:"decks"`
}

type cardRecord struct {
	ID          string         `yaml:"id"`
	Name        string         `yaml:"name"`
	Kind        CardKind       `yaml:"kind"`
	Cost        int            `yaml:"cost"`
	Power       int            `yaml:"power"`
	Hits        *int           `yaml:"hits"`
	Attribute   string         `yaml:"attribute"`
	Text        string         `yaml:"text"`
	Keywords    []string       `yaml:"keywords"`
	Trigger     bool           `yaml:"trigger"`
	AwakenLevel int            `yaml:"awakenLevel"`
	Victory     []string       `yaml:"victory"`
	Effects     []effectRecord `yaml:"effects"`
}

type effectRecord struct {
	Trigger    Trigger          `yaml:"trigger"`
	Action     ActionKind       `yaml:"action"`
	Target     TargetSelector   `yaml:"target"`
	Value      int              `yaml:"value"`
	Hits       int              `yaml:"hits"`
	Look       int              `yaml:"look"`
	Count      int              `yaml:"count"`
	MaxCost    int              `yaml:"maxCost"`
	DrawOnKill int              `yaml:"drawOnKill"`
	Keyword    string           `yaml:"keyword"`
	MinLevel   int              `yaml:"minLevel"`
	SelfTrash  bool             `yaml:"selfTrash"`
	Condition  *conditionRecord `yaml:"condition"`
	Filter     *filterRecord    `yaml:"filter"`
}

type conditionRecord struct {
	Kind    ConditionKind `yaml:"kind"`
	N       int           `yaml:"n"`
	Keyword string        `yaml:"keyword"`
}

type filterRecord struct {
	Kind      CardKind `yaml:"kind"`
	MaxCost   int      `yaml:"maxCost"`
	Attribute string   `yaml:"attribute"`
}

type deckRecord struct {
	ID     string      `yaml:"id"`
	Name   string      `yaml:"name"`
	Leader string      `yaml:"leader"`
	Cards  []deckEntry `yaml:"cards"`
}

type deckEntry struct {
	ID    string `yaml:"id"`
	Count int    `yaml:"count"`
}

// DeckEntry is one line of a deck list.
type DeckEntry struct {
	CardID string
	Count  int
}

// DeckList is a named deck as authored in the catalog.
type DeckList struct {
	ID     string
	Name   string
	Leader string
	Cards  []DeckEntry
}

// Catalog holds every card definition and the named deck lists.
type Catalog struct {
	logger *zap.Logger
	cards  map[string]*CatalogCard
	decks  map[string]DeckList
}

// NewCatalog builds a catalog from already-parsed cards and decks.
func NewCatalog(cards []*CatalogCard, decks []DeckList, logger *zap.Logger) *Catalog {
	c := &Catalog{
		logger: logger,
		cards:  make(map[string]*CatalogCard, len(cards)),
		decks:  make(map[string]DeckList, len(decks)),
	}
	for _, card := range cards {
		c.cards[card.ID] = card
	}
	for _, d := range decks {
		c.decks[d.ID] = d
	}
	return c
}

// LoadCatalog reads and parses a catalog YAML file.
func LoadCatalog(path string, logger *zap.Logger) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	cat, err := ParseCatalog(data, logger)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cat, nil
}

// ParseCatalog parses catalog YAML. Malformed cards fail the whole load;
// deck lists are checked lazily by DeckCards.
func ParseCatalog(data []byte, logger *zap.Logger) (*Catalog, error) {
	var f catalogFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse catalog YAML: %w", err)
	}

	cards := make([]*CatalogCard, 0, len(f.Cards))
	seen := make(map[string]bool, len(f.Cards))
	for _, rec := range f.Cards {
		card, err := rec.build()
		if err != nil {
			return nil, fmt.Errorf("card %q: %w", rec.ID, err)
		}
		if seen[card.ID] {
			return nil, fmt.Errorf("duplicate card id %q", card.ID)
		}
		seen[card.ID] = true
		cards = append(cards, card)
	}

	decks := make([]DeckList, 0, len(f.Decks))
	for _, rec := range f.Decks {
		d := DeckList{ID: rec.ID, Name: rec.Name, Leader: rec.Leader}
		if d.Name == "" {
			d.Name = d.ID
		}
		for _, e := range rec.Cards {
			d.Cards = append(d.Cards, DeckEntry{CardID: e.ID, Count: e.Count})
		}
		decks = append(decks, d)
	}

	cat := NewCatalog(cards, decks, logger)
	if logger != nil {
		logger.Info("catalog loaded",
			zap.Int("cards", len(cards)),
			zap.Int("decks", len(decks)),
		)
	}
	return cat, nil
}

func (rec cardRecord) build() (*CatalogCard, error) {
	if rec.ID == "" {
		return nil, fmt.Errorf("missing id")
	}
	switch rec.Kind {
	case KindUnit, KindSkill, KindItem, KindLeader:
	default:
		return nil, fmt.Errorf("unknown kind %q", rec.Kind)
	}

	card := &CatalogCard{
		ID:          rec.ID,
		Name:        rec.Name,
		Kind:        rec.Kind,
		Cost:        rec.Cost,
		Power:       rec.Power,
		Attribute:   rec.Attribute,
		Text:        rec.Text,
		Trigger:     rec.Trigger,
		AwakenLevel: rec.AwakenLevel,
		Victory:     rec.Victory,
		Keywords:    Keywords{},
	}
	if card.Name == "" {
		card.Name = card.ID
	}
	switch {
	case rec.Hits != nil:
		card.Hits = *rec.Hits
	case rec.Kind == KindUnit || rec.Kind == KindLeader:
		card.Hits = 1
	}

	for _, raw := range rec.Keywords {
		k, v, err := ParseKeyword(raw)
		if err != nil {
			return nil, err
		}
		card.Keywords[k] = v
	}
	for i, er := range rec.Effects {
		eff, err := er.build()
		if err != nil {
			return nil, fmt.Errorf("effect %d: %w", i, err)
		}
		card.Effects = append(card.Effects, eff)
	}
	return card, nil
}

func (er effectRecord) build() (Effect, error) {
	if !knownTriggers[er.Trigger] {
		return Effect{}, fmt.Errorf("unknown trigger %q", er.Trigger)
	}
	target := er.Target
	if target == "" {
		target = TargetSelf
	}
	if !knownTargets[target] {
		return Effect{}, fmt.Errorf("unknown target %q", er.Target)
	}

	var filter CardFilter
	if er.Filter != nil {
		filter = CardFilter{Kind: er.Filter.Kind, MaxCost: er.Filter.MaxCost, Attribute: er.Filter.Attribute}
	}
	count := er.Count
	if count == 0 {
		count = er.Value
	}

	var action Action
	switch er.Action {
	case ActionDraw:
		action = Draw{Count: er.Value}
	case ActionBuff:
		action = Buff{Power: er.Value, Hits: er.Hits}
	case ActionDebuff:
		action = Debuff{Power: er.Value}
	case ActionDamage:
		hits := er.Hits
		if hits == 0 {
			hits = er.Value
		}
		action = Damage{Hits: hits}
	case ActionLevelUp:
		action = LevelUp{Amount: er.Value}
	case ActionStun:
		action = Stun{}
	case ActionHeal:
		action = Heal{Amount: er.Value}
	case ActionSetPower:
		action = SetPower{Value: er.Value}
	case ActionGrantKeyword:
		k, v, err := ParseKeyword(er.Keyword)
		if err != nil {
			return Effect{}, err
		}
		if er.Value != 0 {
			v = er.Value
		}
		action = GrantKeyword{Keyword: k, Value: v}
	case ActionDestroy:
		action = Destroy{}
	case ActionSearchDeck:
		action = SearchDeck{Look: er.Look, Count: count, Filter: filter}
	case ActionDiscardHand:
		action = DiscardHand{Count: count}
	case ActionBounceEnemy:
		action = BounceEnemy{MaxCost: er.MaxCost}
	case ActionKillEnemy:
		action = KillEnemy{MaxCost: er.MaxCost}
	case ActionDebuffEnemy:
		action = DebuffEnemy{Power: er.Value, DrawOnKill: er.DrawOnKill}
	case ActionSalvage:
		action = Salvage{Count: count, Filter: filter}
	case ActionRecycle:
		action = Recycle{Filter: filter}
	case ActionResurrect:
		action = Resurrect{MaxCost: er.MaxCost}
	case ActionDiscardThenKill:
		action = DiscardThenKill{}
	default:
		return Effect{}, fmt.Errorf("unknown action %q", er.Action)
	}

	eff := Effect{
		Trigger:   er.Trigger,
		Action:    action,
		Target:    target,
		MinLevel:  er.MinLevel,
		SelfTrash: er.SelfTrash,
	}
	if er.Condition != nil {
		cond := &Condition{Kind: er.Condition.Kind, N: er.Condition.N}
		if er.Condition.Keyword != "" {
			k, _, err := ParseKeyword(er.Condition.Keyword)
			if err != nil {
				return Effect{}, err
			}
			cond.Keyword = k
		}
		eff.Condition = cond
	}
	return eff, nil
}

// Card returns the definition for id.
func (c *Catalog) Card(id string) (*CatalogCard, bool) {
	card, ok := c.cards[id]
	return card, ok
}

// Deck returns the named deck list.
func (c *Catalog) Deck(id string) (DeckList, bool) {
	d, ok := c.decks[id]
	return d, ok
}

// DeckIDs lists deck ids in sorted order.
func (c *Catalog) DeckIDs() []string {
	ids := make([]string, 0, len(c.decks))
	for id := range c.decks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// DeckCards resolves a deck list into its leader and card definitions.
// Unknown ids, non-deckable kinds, cards off the leader's attribute, copies
// beyond MaxCopies and trigger cards beyond DeckTriggerLimit are dropped
// with a warning.
func (c *Catalog) DeckCards(deckID string) (*CatalogCard, []*CatalogCard, error) {
	d, ok := c.decks[deckID]
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownDeck, deckID)
	}

	var leader *CatalogCard
	if d.Leader != "" {
		l, ok := c.cards[d.Leader]
		switch {
		case !ok:
			c.warn("unknown leader in deck", deckID, d.Leader)
		case l.Kind != KindLeader:
			c.warn("leader slot holds a non-leader card", deckID, d.Leader)
		default:
			leader = l
		}
	}

	copies := make(map[string]int)
	triggers := 0
	cards := make([]*CatalogCard, 0, DeckSize)
	for _, e := range d.Cards {
		card, ok := c.cards[e.CardID]
		if !ok {
			c.warn("unknown card in deck", deckID, e.CardID)
			continue
		}
		if !card.Kind.Deckable() {
			c.warn("non-deckable card in deck", deckID, e.CardID)
			continue
		}
		if !attributeCompatible(leader, card) {
			c.warn("card attribute does not match leader", deckID, e.CardID)
			continue
		}
		for i := 0; i < e.Count; i++ {
			if copies[card.ID] >= MaxCopies {
				c.warn("copy limit exceeded", deckID, e.CardID)
				break
			}
			if card.Trigger && triggers >= DeckTriggerLimit {
				c.warn("trigger limit exceeded", deckID, e.CardID)
				break
			}
			if card.Trigger {
				triggers++
			}
			copies[card.ID]++
			cards = append(cards, card)
		}
	}
	if len(cards) != DeckSize && c.logger != nil {
		c.logger.Warn("deck size differs from standard",
			zap.String("deck_id", deckID),
			zap.Int("size", len(cards)),
			zap.Int("expected", DeckSize),
		)
	}
	return leader, cards, nil
}

// attributeCompatible reports whether card may sit in a deck led by leader.
// An empty attribute on either side is neutral.
func attributeCompatible(leader, card *CatalogCard) bool {
	if leader == nil || leader.Attribute == "" || card.Attribute == "" {
		return true
	}
	return leader.Attribute == card.Attribute
}

func (c *Catalog) warn(msg, deckID, cardID string) {
	if c.logger != nil {
		c.logger.Warn(msg,
			zap.String("deck_id", deckID),
			zap.String("card_id", cardID),
		)
	}
}
