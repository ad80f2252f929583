// Package quota implements the tier policy table and the quota enforcer
package quota

import (
	"fmt"
	"time"
)

type Tier string

const (
	TierFree Tier = "free"
	TierPro  Tier = "pro"
	TierTeam Tier = "team"
	TierVIP  Tier = "vip"
)

type Kind string

const (
	KindText  Kind = "text"
	KindImage Kind = "image"
	KindMixed Kind = "mixed"
	KindCode  Kind = "code"
	KindURL   Kind = "url"
	KindFile  Kind = "file"
)

// RolloverWindow is how long a daily-upload counter stays valid before
// it is lazily reset on the next quota check.
const RolloverWindow = 24 * time.Hour

const (
	mb = 1 << 20
	gb = 1 << 30
)

// Limits holds the resource caps for a single tier. Values never change
// at runtime, changing the table is a deployment.
type Limits struct {
	MaxFileSize    int64
	MaxDailyUpload int64
	AllowedKinds   []Kind
	MaxStorageDays int
}

func (l Limits) Allows(k Kind) bool {
	for _, v := range l.AllowedKinds {
		if v == k {
			return true
		}
	}

	return false
}

type Table map[Tier]Limits

// LimitsFor is total over the tier enum. Getting an error out of it means
// someone passed a value that never came from the enum.
func (t Table) LimitsFor(tier Tier) (Limits, error) {
	l, ok := t[tier]
	if !ok {
		return Limits{}, fmt.Errorf("no limits defined for tier %q", tier)
	}

	return l, nil
}

var everyKind = []Kind{KindText, KindImage, KindMixed, KindCode, KindURL, KindFile}

// DefaultTable returns the production policy table. Every tier may create
// every content kind, the caps and retention differ.
func DefaultTable() Table {
	return Table{
		TierFree: {
			MaxFileSize:    100 * mb,
			MaxDailyUpload: 100 * mb,
			AllowedKinds:   everyKind,
			MaxStorageDays: 1,
		},
		TierPro: {
			MaxFileSize:    1 * gb,
			MaxDailyUpload: 5 * gb,
			AllowedKinds:   everyKind,
			MaxStorageDays: 7,
		},
		TierTeam: {
			MaxFileSize:    5 * gb,
			MaxDailyUpload: 50 * gb,
			AllowedKinds:   everyKind,
			MaxStorageDays: 30,
		},
		TierVIP: {
			MaxFileSize:    5 * gb,
			MaxDailyUpload: 50 * gb,
			AllowedKinds:   everyKind,
			MaxStorageDays: 30,
		},
	}
}
