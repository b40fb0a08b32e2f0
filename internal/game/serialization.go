package game

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Checksum computes a deterministic SHA-256 over the snapshot. Timestamps
// and log text are excluded, so two matches that reach the same board
// agree on the checksum.
func Checksum(snap *Snapshot) string {
	if snap == nil {
		return ""
	}
	sum := sha256.Sum256([]byte(canonical(snap)))
	return hex.EncodeToString(sum[:])
}

// VerifyChecksum reports whether snap hashes to expected.
func VerifyChecksum(snap *Snapshot, expected string) bool {
	return Checksum(snap) == expected
}

func canonical(snap *Snapshot) string {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "MATCH:%s|%s|%s|%d|%s|%s\n",
		snap.MatchID, snap.Phase, snap.TurnPlayer, snap.Turn, snap.Winner, snap.EndReason)

	for _, p := range snap.Players {
		fmt.Fprintf(&buf, "PLAYER:%s|%s|%d|%d|%d|%t|%d|%d|%d\n",
			p.ID, p.Username, p.Seat, p.HP, p.Level, p.Awakened, p.HandCount, p.DeckCount, p.UsedCost)
		if p.Leader != nil {
			buf.WriteString("LEADER:" + canonicalCard(*p.Leader) + "\n")
		}
		writeZone(&buf, "DISCARD", p.Discard)
		writeZone(&buf, "DAMAGE", p.Damage)
		writeZone(&buf, "SKILL", p.SkillZone)
		for slot, u := range p.Field {
			if u == nil {
				fmt.Fprintf(&buf, "SLOT:%d|-\n", slot)
				continue
			}
			fmt.Fprintf(&buf, "SLOT:%d|%s\n", slot, canonicalCard(*u))
			writeZone(&buf, "ATTACHED", u.Attachments)
		}
	}

	if pa := snap.Pending; pa != nil {
		guardians := make([]int, len(pa.GuardianSlots))
		copy(guardians, pa.GuardianSlots)
		sort.Ints(guardians)
		fmt.Fprintf(&buf, "PENDING:%s|%d|%s|%d|%v\n",
			pa.AttackerID, pa.AttackerIndex, pa.DefenderID, pa.TargetIndex, guardians)
	}
	if sel := snap.Selection; sel != nil {
		fmt.Fprintf(&buf, "SELECTION:%s|%s|%d|%t\n", sel.Requester, sel.Pool, sel.Count, sel.Optional)
	}
	return buf.String()
}

func writeZone(buf *bytes.Buffer, name string, cards []CardView) {
	ids := make([]string, 0, len(cards))
	for _, c := range cards {
		ids = append(ids, c.CatalogID)
	}
	// zone order is not significant for integrity, contents are
	sort.Strings(ids)
	fmt.Fprintf(buf, "%s:%s\n", name, strings.Join(ids, ","))
}

func canonicalCard(c CardView) string {
	keywords := append([]string(nil), c.Keywords...)
	sort.Strings(keywords)
	return fmt.Sprintf("%s|%d|%d|%s|%t|%t", c.CatalogID, c.Power, c.Hits,
		strings.Join(keywords, ","), c.Stunned, c.Recycle)
}

// MatchRecord is the archived summary of a finished match.
type MatchRecord struct {
	ID        string
	Players   [2]string
	Usernames [2]string
	Winner    string
	Reason    string
	Turns     int
	StartedAt time.Time
	EndedAt   time.Time
	Replay    []byte
	Checksum  string
}

// Record builds the archive record of the match. The replay blob is empty
// when recording was disabled.
func (m *Match) Record() (MatchRecord, error) {
	m.mu.Lock()
	s := m.state
	rec := MatchRecord{
		ID:        s.ID,
		Winner:    s.Winner,
		Reason:    s.EndReason,
		Turns:     s.Turn(),
		StartedAt: s.StartedAt,
		EndedAt:   s.EndedAt,
		Checksum:  Checksum(buildSnapshot(m, "")),
	}
	for seat, p := range s.Players {
		rec.Players[seat] = p.ID
		rec.Usernames[seat] = p.Username
	}
	replay := m.replay
	m.mu.Unlock()

	if replay != nil {
		blob, err := replay.Encode()
		if err != nil {
			return rec, fmt.Errorf("failed to encode replay for match %s: %w", rec.ID, err)
		}
		rec.Replay = blob
	}
	return rec, nil
}
