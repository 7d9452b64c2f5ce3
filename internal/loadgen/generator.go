package loadgen

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/matchmaker/internal/domain/model"
)

var (
	industries = []string{"Fintech", "SaaS", "Health", "Climate", "Media", "Retail", "Venture", "Education", "Logistics", "Gaming"}
	interests  = []string{"AI", "Payments", "Growth", "Design", "Security", "Data", "Hardware", "Marketing", "Open Source", "Robotics", "Policy", "Crypto"}
	goals      = []string{"Hiring", "Fundraising", "Mentoring", "Learning", "Partnerships", "Selling", "Investing"}
	roles      = []string{"founder", "engineer", "investor", "designer", "marketer", "researcher", "product manager"}
	subjects   = []string{"payment products", "machine learning", "developer tools", "health apps", "carbon markets", "online stores", "supply chains"}
	categories = []string{"workshop", "keynote", "networking", "panel", "demo"}
)

// interactionMix weights kinds so the log resembles real event traffic:
// views and messages dominate, meetings and accepts are rarer.
var interactionMix = []struct {
	kind   model.EventKind
	weight int
}{
	{model.KindProfileView, 30},
	{model.KindMessageSent, 20},
	{model.KindMatchAccepted, 10},
	{model.KindMatchRejected, 6},
	{model.KindEventJoined, 8},
	{model.KindEventCheckedIn, 5},
	{model.KindMeetingScheduled, 7},
	{model.KindMeetingCompleted, 5},
	{model.KindSearchPerformed, 6},
	{model.KindFeedbackSubmitted, 3},
}

// inactiveEvery marks one profile in this many as inactive.
const inactiveEvery = 10

// Generator produces deterministic synthetic data.
type Generator struct {
	rng *rand.Rand
	ns  uuid.UUID
}

// NewGenerator returns a Generator; equal seeds yield equal output.
func NewGenerator(seed uint64) *Generator {
	return &Generator{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		ns:  uuid.NewSHA1(uuid.NameSpaceOID, []byte(fmt.Sprintf("matchmaker-loadgen/%d", seed))),
	}
}

// Profiles returns n profiles with ids user-0000 and up.
func (g *Generator) Profiles(n int) []model.Profile {
	out := make([]model.Profile, n)
	for i := range out {
		role := roles[g.rng.IntN(len(roles))]
		subject := subjects[g.rng.IntN(len(subjects))]
		out[i] = model.Profile{
			ID:         UserID(i),
			Name:       fmt.Sprintf("Attendee %d", i),
			Bio:        fmt.Sprintf("%s working on %s", strings.ToUpper(role[:1])+role[1:], subject),
			Industries: g.pick(industries, 1+g.rng.IntN(2)),
			Interests:  g.pick(interests, 1+g.rng.IntN(4)),
			Goals:      g.pick(goals, g.rng.IntN(3)),
			Active:     i%inactiveEvery != inactiveEvery-1,
		}
	}
	return out
}

// Interactions returns n interactions between the given profiles, spread
// over the week before now. Every interaction has a stable unique id.
func (g *Generator) Interactions(profiles []model.Profile, n int, now time.Time) []model.InteractionEvent {
	if len(profiles) < 2 {
		return nil
	}
	total := 0
	for _, m := range interactionMix {
		total += m.weight
	}

	out := make([]model.InteractionEvent, n)
	for i := range out {
		subject := g.rng.IntN(len(profiles))
		target := g.rng.IntN(len(profiles) - 1)
		if target >= subject {
			target++
		}
		e := model.InteractionEvent{
			ID:        uuid.NewSHA1(g.ns, []byte(fmt.Sprintf("interaction/%d", i))).String(),
			SubjectID: profiles[subject].ID,
			Kind:      g.kind(total),
			Timestamp: now.Add(-time.Duration(g.rng.Int64N(int64(7 * 24 * time.Hour)))).UTC().Truncate(time.Second),
		}
		switch e.Kind {
		case model.KindEventJoined, model.KindEventCheckedIn:
			e.EventID = fmt.Sprintf("event-%02d", g.rng.IntN(20))
			e.Metadata = map[string]string{model.MetadataCategory: categories[g.rng.IntN(len(categories))]}
		case model.KindSearchPerformed:
		default:
			e.TargetID = profiles[target].ID
		}
		out[i] = e
	}
	return out
}

// UserID names the i-th generated user.
func UserID(i int) string { return fmt.Sprintf("user-%04d", i) }

func (g *Generator) kind(total int) model.EventKind {
	r := g.rng.IntN(total)
	for _, m := range interactionMix {
		if r < m.weight {
			return m.kind
		}
		r -= m.weight
	}
	return model.KindProfileView
}

func (g *Generator) pick(from []string, n int) []string {
	if n <= 0 {
		return nil
	}
	idx := g.rng.Perm(len(from))[:min(n, len(from))]
	out := make([]string, len(idx))
	for i, j := range idx {
		out[i] = from[j]
	}
	return out
}
