package game

// Trigger names the moment an effect fires.
type Trigger string

const (
	TriggerOnPlay               Trigger = "on-play"
	TriggerOnEntry              Trigger = "on-entry"
	TriggerOnAttack             Trigger = "on-attack"
	TriggerOnDestroy            Trigger = "on-destroy"
	TriggerOnExit               Trigger = "on-exit"
	TriggerPassive              Trigger = "passive"
	TriggerActive               Trigger = "active"
	TriggerOnAwaken             Trigger = "on-awaken"
	TriggerOnOtherUnitDestroyed Trigger = "on-other-unit-destroyed"
	TriggerOnDamageReveal       Trigger = "on-damage-reveal"
)

var knownTriggers = map[Trigger]bool{
	TriggerOnPlay:               true,
	TriggerOnEntry:              true,
	TriggerOnAttack:             true,
	TriggerOnDestroy:            true,
	TriggerOnExit:               true,
	TriggerPassive:              true,
	TriggerActive:               true,
	TriggerOnAwaken:             true,
	TriggerOnOtherUnitDestroyed: true,
	TriggerOnDamageReveal:       true,
}

// TargetSelector picks what a non-choice effect applies to, relative to
// the controller of the effect source.
type TargetSelector string

const (
	TargetSelf         TargetSelector = "self"
	TargetOwnUnits     TargetSelector = "own-units"
	TargetEnemyUnits   TargetSelector = "enemy-units"
	TargetAllUnits     TargetSelector = "all-units"
	TargetOpposingUnit TargetSelector = "opposing-unit"
	TargetAttachedUnit TargetSelector = "attached-unit"
	TargetOwnPlayer    TargetSelector = "own-player"
	TargetEnemyPlayer  TargetSelector = "enemy-player"
)

var knownTargets = map[TargetSelector]bool{
	TargetSelf:         true,
	TargetOwnUnits:     true,
	TargetEnemyUnits:   true,
	TargetAllUnits:     true,
	TargetOpposingUnit: true,
	TargetAttachedUnit: true,
	TargetOwnPlayer:    true,
	TargetEnemyPlayer:  true,
}

// ConditionKind names a predicate gating an effect.
type ConditionKind string

const (
	CondMyTurn                ConditionKind = "my-turn"
	CondOpponentTurn          ConditionKind = "opponent-turn"
	CondFieldFull             ConditionKind = "field-full"
	CondOwnUnitsAtLeast       ConditionKind = "own-units-at-least"
	CondEnemyUnitsAtLeast     ConditionKind = "enemy-units-at-least"
	CondEnemyUnitsAtMost      ConditionKind = "enemy-units-at-most"
	CondEquipmentAtLeast      ConditionKind = "equipment-at-least"
	CondLeaderLevelAtLeast    ConditionKind = "leader-level-at-least"
	CondHandAtMost            ConditionKind = "hand-at-most"
	CondHandAtLeast           ConditionKind = "hand-at-least"
	CondDamageAtLeast         ConditionKind = "damage-at-least"
	CondDiscardAtLeast        ConditionKind = "discard-at-least"
	CondTargetHasKeyword      ConditionKind = "target-has-keyword"
	CondAttackerIsOpposing    ConditionKind = "attacker-is-opposing"
	CondOpponentDamageAtLeast ConditionKind = "opponent-damage-at-least"
)

// Condition is a named predicate with an optional numeric or keyword argument.
type Condition struct {
	Kind    ConditionKind
	N       int
	Keyword Keyword
}

// CardFilter narrows the candidates of a choice effect. Zero fields match anything.
type CardFilter struct {
	Kind      CardKind
	MaxCost   int
	Attribute string
}

// Match reports whether the catalog card passes the filter.
func (f CardFilter) Match(c *CatalogCard) bool {
	if c == nil {
		return false
	}
	if f.Kind != "" && c.Kind != f.Kind {
		return false
	}
	if f.MaxCost > 0 && c.Cost > f.MaxCost {
		return false
	}
	if f.Attribute != "" && c.Attribute != f.Attribute {
		return false
	}
	return true
}

// ActionKind is the stable name of an action variant.
type ActionKind string

const (
	ActionDraw            ActionKind = "draw"
	ActionBuff            ActionKind = "buff"
	ActionDebuff          ActionKind = "debuff"
	ActionDamage          ActionKind = "damage"
	ActionLevelUp         ActionKind = "level-up"
	ActionStun            ActionKind = "stun"
	ActionHeal            ActionKind = "heal"
	ActionSetPower        ActionKind = "set-power"
	ActionGrantKeyword    ActionKind = "grant-keyword"
	ActionDestroy         ActionKind = "destroy"
	ActionSearchDeck      ActionKind = "search-deck"
	ActionDiscardHand     ActionKind = "discard-hand"
	ActionBounceEnemy     ActionKind = "bounce-enemy"
	ActionKillEnemy       ActionKind = "kill-enemy"
	ActionDebuffEnemy     ActionKind = "debuff-enemy"
	ActionSalvage         ActionKind = "salvage"
	ActionRecycle         ActionKind = "recycle"
	ActionResurrect       ActionKind = "resurrect"
	ActionDiscardThenKill ActionKind = "discard-then-kill"
)

// Action is a closed set of effect payloads. Variants are matched by type
// switch in the interpreter.
type Action interface {
	Kind() ActionKind
	action()
}

type (
	// Draw draws Count cards for the targeted player.
	Draw struct{ Count int }
	// Buff raises power and hit count until end of turn, or permanently while passive.
	Buff struct{ Power, Hits int }
	// Debuff lowers power until end of turn, or while passive.
	Debuff struct{ Power int }
	// Damage reveals Hits damage cards on the targeted player.
	Damage struct{ Hits int }
	LevelUp struct{ Amount int }
	Stun    struct{}
	// Heal moves up to Amount cards from the damage zone to the discard.
	Heal     struct{ Amount int }
	SetPower struct{ Value int }
	// GrantKeyword grants a keyword until end of turn, or while passive.
	GrantKeyword struct {
		Keyword Keyword
		Value   int
	}
	Destroy struct{}

	// SearchDeck reveals the top Look cards and lets the controller take up to
	// Count matching cards into hand. The rest go to the bottom in random order.
	SearchDeck struct {
		Look   int
		Count  int
		Filter CardFilter
	}
	DiscardHand struct{ Count int }
	// BounceEnemy returns an enemy unit of cost at most MaxCost to its owner's hand.
	BounceEnemy struct{ MaxCost int }
	KillEnemy   struct{ MaxCost int }
	// DebuffEnemy lowers a chosen enemy unit and draws DrawOnKill cards if it dies.
	DebuffEnemy struct {
		Power      int
		DrawOnKill int
	}
	Salvage struct {
		Count  int
		Filter CardFilter
	}
	// Recycle marks a discard card to return to hand at end of turn.
	Recycle   struct{ Filter CardFilter }
	Resurrect struct{ MaxCost int }
	// DiscardThenKill discards a unit from hand, then destroys an enemy unit
	// that costs less than the discarded one.
	DiscardThenKill struct{}
)

func (Draw) Kind() ActionKind            { return ActionDraw }
func (Buff) Kind() ActionKind            { return ActionBuff }
func (Debuff) Kind() ActionKind          { return ActionDebuff }
func (Damage) Kind() ActionKind          { return ActionDamage }
func (LevelUp) Kind() ActionKind         { return ActionLevelUp }
func (Stun) Kind() ActionKind            { return ActionStun }
func (Heal) Kind() ActionKind            { return ActionHeal }
func (SetPower) Kind() ActionKind        { return ActionSetPower }
func (GrantKeyword) Kind() ActionKind    { return ActionGrantKeyword }
func (Destroy) Kind() ActionKind         { return ActionDestroy }
func (SearchDeck) Kind() ActionKind      { return ActionSearchDeck }
func (DiscardHand) Kind() ActionKind     { return ActionDiscardHand }
func (BounceEnemy) Kind() ActionKind     { return ActionBounceEnemy }
func (KillEnemy) Kind() ActionKind       { return ActionKillEnemy }
func (DebuffEnemy) Kind() ActionKind     { return ActionDebuffEnemy }
func (Salvage) Kind() ActionKind         { return ActionSalvage }
func (Recycle) Kind() ActionKind         { return ActionRecycle }
func (Resurrect) Kind() ActionKind       { return ActionResurrect }
func (DiscardThenKill) Kind() ActionKind { return ActionDiscardThenKill }

func (Draw) action()            {}
func (Buff) action()            {}
func (Debuff) action()          {}
func (Damage) action()          {}
func (LevelUp) action()         {}
func (Stun) action()            {}
func (Heal) action()            {}
func (SetPower) action()        {}
func (GrantKeyword) action()    {}
func (Destroy) action()         {}
func (SearchDeck) action()      {}
func (DiscardHand) action()     {}
func (BounceEnemy) action()     {}
func (KillEnemy) action()       {}
func (DebuffEnemy) action()     {}
func (Salvage) action()         {}
func (Recycle) action()         {}
func (Resurrect) action()       {}
func (DiscardThenKill) action() {}

// RequiresChoice reports whether the action suspends for a player selection.
func RequiresChoice(a Action) bool {
	switch a.(type) {
	case SearchDeck, DiscardHand, BounceEnemy, KillEnemy, DebuffEnemy,
		Salvage, Recycle, Resurrect, DiscardThenKill:
		return true
	}
	return false
}

// Effect binds an action to a trigger with optional gates.
type Effect struct {
	Trigger   Trigger
	Action    Action
	Target    TargetSelector
	Condition *Condition
	// MinLevel gates the effect on the controller's leader level.
	MinLevel int
	// SelfTrash sends the source card to the discard once the effect resolves.
	SelfTrash bool
}
