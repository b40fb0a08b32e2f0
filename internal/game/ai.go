package game

import (
	"sync"
	"time"

	"github.com/thraizz/tcg-match-server/internal/game/rules"
	"go.uber.org/zap"
)

// AIController plays a seat from the snapshots it receives. It decides on
// a timer so Receive never blocks and never re-enters the match directly.
type AIController struct {
	logger *zap.Logger
	clock  Clock
	delay  time.Duration

	mu     sync.Mutex
	submit SubmitFunc
	timer  Timer
	last   *Snapshot
}

// NewAIController creates an AI that acts delay after each state update.
func NewAIController(clock Clock, delay time.Duration, logger *zap.Logger) *AIController {
	if clock == nil {
		clock = RealClock()
	}
	return &AIController{logger: logger, clock: clock, delay: delay}
}

func (a *AIController) Bind(submit SubmitFunc) {
	a.mu.Lock()
	a.submit = submit
	last := a.last
	a.mu.Unlock()
	if last != nil {
		a.schedule(last)
	}
}

// Receive reacts to state snapshots; every other notification is ignored.
func (a *AIController) Receive(n Notification) {
	if n.Type != NotifyState || n.State == nil {
		return
	}
	a.schedule(n.State)
}

func (a *AIController) schedule(snap *Snapshot) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.last = snap
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
	if a.submit == nil || len(planTurn(snap)) == 0 {
		return
	}
	a.timer = a.clock.AfterFunc(a.delay, func() { a.act(snap) })
}

// act tries the planned commands in order until one is accepted.
func (a *AIController) act(snap *Snapshot) {
	a.mu.Lock()
	if a.last != snap {
		a.mu.Unlock()
		return
	}
	a.timer = nil
	submit := a.submit
	a.mu.Unlock()
	if submit == nil {
		return
	}

	for _, cmd := range planTurn(snap) {
		err := submit(cmd)
		if err == nil {
			return
		}
		if a.logger != nil {
			a.logger.Debug("ai command rejected",
				zap.String("match_id", snap.MatchID),
				zap.String("command", string(cmd.Type)),
				zap.Error(err),
			)
		}
	}
}

// planTurn lists candidate commands for the snapshot owner, best first.
// Nothing is returned when the AI has no decision to make.
func planTurn(snap *Snapshot) []Command {
	if snap == nil || snap.You == "" || snap.Winner != "" {
		return nil
	}
	me := -1
	for i, p := range snap.Players {
		if p.ID == snap.You {
			me = i
		}
	}
	if me < 0 {
		return nil
	}
	self := snap.Players[me]
	enemy := snap.Players[1-me]

	if sel := snap.Selection; sel != nil {
		if sel.Requester != snap.You {
			return nil
		}
		ids := make([]string, 0, sel.Count)
		for _, c := range sel.Candidates {
			if len(ids) == sel.Count {
				break
			}
			ids = append(ids, c.ID)
		}
		return []Command{{Type: CmdResolveSelection, CardIDs: ids}}
	}

	phase, err := rules.ParsePhase(snap.Phase)
	if err != nil {
		return nil
	}
	if phase == rules.PhaseMulligan {
		if self.MulliganDone {
			return nil
		}
		return []Command{{Type: CmdResolveMulligan}}
	}
	if phase.IsCombat() && snap.Pending != nil {
		if snap.Pending.DefenderID != snap.You {
			return nil
		}
		switch phase {
		case rules.PhaseGuardianIntercept:
			return []Command{{Type: CmdResolveGuardian}}
		case rules.PhaseDefense:
			return []Command{{Type: CmdResolveDefense, Choice: chooseDefense(snap, self, enemy)}}
		}
	}

	if snap.TurnPlayer != snap.You {
		return nil
	}
	switch phase {
	case rules.PhaseMain:
		return append(planPlays(self), Command{Type: CmdAdvancePhase})
	case rules.PhaseAttack:
		var cmds []Command
		for slot, u := range self.Field {
			if u == nil || u.Attacked || u.Stunned || u.CannotAttack || u.Power <= 0 {
				continue
			}
			cmds = append(cmds, Command{Type: CmdDeclareAttack, Slot: slot, TargetSlot: slot})
		}
		return append(cmds, Command{Type: CmdAdvancePhase})
	}
	return nil
}

// chooseDefense blocks when the defender survives or when the next hits
// would be fatal anyway.
func chooseDefense(snap *Snapshot, self, enemy PlayerView) DefenseChoice {
	pa := snap.Pending
	if pa.AttackerIndex < 0 || pa.AttackerIndex >= FieldSlots || pa.TargetIndex < 0 || pa.TargetIndex >= FieldSlots {
		return DefenseTake
	}
	attacker := enemy.Field[pa.AttackerIndex]
	defender := self.Field[pa.TargetIndex]
	if attacker == nil || defender == nil {
		return DefenseTake
	}
	for _, k := range attacker.Keywords {
		if k == KeywordBreakthrough.Display() {
			return DefenseTake
		}
	}
	if defender.Power > attacker.Power {
		return DefenseBlock
	}
	if self.HP+attacker.Hits >= LosingDamage {
		return DefenseBlock
	}
	return DefenseTake
}

// planPlays proposes every affordable unit and item, most expensive first.
func planPlays(self PlayerView) []Command {
	free := self.SizeLimit - self.UsedCost
	type option struct {
		cmd  Command
		cost int
	}
	var opts []option
	for i, c := range self.Hand {
		if c.Cost > free {
			continue
		}
		switch c.Kind {
		case KindUnit:
			for slot, u := range self.Field {
				if u == nil && self.PlacedInSlot[slot] == 0 {
					opts = append(opts, option{Command{Type: CmdPlayCard, HandIndex: i, Slot: slot}, c.Cost})
					break
				}
			}
		case KindItem:
			for slot, u := range self.Field {
				if u != nil {
					opts = append(opts, option{Command{Type: CmdPlayCard, HandIndex: i, Slot: slot}, c.Cost})
					break
				}
			}
		}
	}
	cmds := make([]Command, 0, len(opts))
	for len(opts) > 0 {
		best := 0
		for i := range opts {
			if opts[i].cost > opts[best].cost {
				best = i
			}
		}
		cmds = append(cmds, opts[best].cmd)
		opts = append(opts[:best], opts[best+1:]...)
	}
	return cmds
}
