package quota

import (
	"fmt"
	"time"

	"pindrop/pin-api/internal/billing"
	"pindrop/pin-api/internal/model"
	"pindrop/pin-api/internal/pinerr"
)

// Enforcer decides whether a proposed pin fits inside the owner's quota.
// It is a pure decision function over the injected policy table: nothing
// is persisted here, the caller commits the returned counters together
// with the pin.
type Enforcer struct {
	table Table

	// Now is swappable so rollover and expiry logic can be tested with a
	// fixed clock
	Now func() time.Time
}

func NewEnforcer(t Table) *Enforcer {
	return &Enforcer{
		table: t,
		Now:   time.Now,
	}
}

// Limits exposes the injected table for read-only reporting (the quota
// endpoint shows users their caps).
func (e *Enforcer) Limits(tier Tier) (Limits, error) {
	return e.table.LimitsFor(tier)
}

// Decision carries everything the caller must persist atomically with
// the new pin.
type Decision struct {
	Tier          Tier
	ExpiresAt     int64 // unix milliseconds
	NewDailyTotal int64
	LastResetTime int64
	RolledOver    bool
}

// ResolveTier returns the effective tier for a user. The nominal plan
// label on the user record wins; otherwise the tier derives from the
// billing subscription, the vip flag, or falls back to free.
//
// A non-free nominal plan whose subscription is neither active nor
// trialing is rejected outright. VIP bypasses the status check entirely.
func (e *Enforcer) ResolveTier(u *model.User, sub *billing.Subscription) (Tier, error) {
	nominal := Tier(u.Plan)
	if nominal == "" {
		switch {
		case sub != nil && sub.PlanKey == "team":
			nominal = TierTeam
		case sub != nil && sub.PlanKey == "pro":
			nominal = TierPro
		case u.VIP:
			nominal = TierVIP
		default:
			nominal = TierFree
		}
	}

	if nominal != TierFree && nominal != TierVIP {
		status := ""
		if sub != nil {
			status = sub.Status
		}

		if status != billing.StatusActive && status != billing.StatusTrialing {
			return "", pinerr.New(pinerr.CodeSubscriptionRequired,
				"active subscription required to create pins, please check your subscription status")
		}
	}

	return nominal, nil
}

func kindCarriesPayload(k Kind) bool {
	return k == KindImage || k == KindMixed || k == KindFile
}

// Evaluate runs the quota checks in order, short-circuiting on the first
// failure: tier resolution, kind gating, per-file size, lazy 24h
// rollover, daily aggregate. proposedBytes is the total payload the pin
// would add to the daily counter.
func (e *Enforcer) Evaluate(u *model.User, sub *billing.Subscription, kind Kind, proposedBytes int64) (*Decision, error) {
	tier, err := e.ResolveTier(u, sub)
	if err != nil {
		return nil, err
	}

	lim, err := e.table.LimitsFor(tier)
	if err != nil {
		return nil, err
	}

	if !lim.Allows(kind) {
		return nil, pinerr.New(pinerr.CodeKindNotAllowed,
			fmt.Sprintf("content kind %q is not allowed on the %s plan", kind, tier))
	}

	if kindCarriesPayload(kind) && proposedBytes > lim.MaxFileSize {
		return nil, pinerr.New(pinerr.CodeFileTooLarge,
			fmt.Sprintf("file size exceeds the %dMB limit for the %s plan", lim.MaxFileSize/mb, tier))
	}

	now := e.Now().UnixMilli()
	total := u.DailyUploadTotal
	lastReset := u.LastResetTime
	rolled := false

	// Lazy rollover. This check is authoritative, the scheduled sweep is
	// only a backstop for users who never touch the quota path
	if lastReset == 0 || now-lastReset >= RolloverWindow.Milliseconds() {
		total = 0
		lastReset = now
		rolled = true
	}

	if total+proposedBytes > lim.MaxDailyUpload {
		return nil, pinerr.New(pinerr.CodeDailyQuotaExceeded,
			fmt.Sprintf("daily upload limit of %dMB exceeded for the %s plan", lim.MaxDailyUpload/mb, tier))
	}

	return &Decision{
		Tier:          tier,
		ExpiresAt:     now + int64(lim.MaxStorageDays)*24*time.Hour.Milliseconds(),
		NewDailyTotal: total + proposedBytes,
		LastResetTime: lastReset,
		RolledOver:    rolled,
	}, nil
}
