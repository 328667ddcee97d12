// Package report computes the history views over the ledger: the net of
// each recent day and the totals of the last year.
package report

import (
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"

	"dailyledger/internal/core"
	"dailyledger/internal/ledger"
)

const (
	DefaultDays = 10
	MaxDays     = 366
	YearDays    = 365
)

// DayNet is the net (income minus expenses and bills) of one calendar day.
type DayNet struct {
	Day core.Day
	Net decimal.Decimal
}

// DailyNet returns the last n days ending at today, newest first. Days
// without entries are present with a zero net.
func DailyNet(txs []core.Transaction, today core.Day, n int, loc *time.Location) []DayNet {
	if n <= 0 {
		return []DayNet{}
	}
	from := today.AddDays(-(n - 1))

	totals := make(map[core.Day]*core.Totals, n)
	for tx := range ledger.Between(txs, from, today, loc) {
		d := core.DayOf(tx.Date, loc)
		t, ok := totals[d]
		if !ok {
			t = &core.Totals{}
			totals[d] = t
		}
		t.Add(tx)
	}

	out := make([]DayNet, 0, n)
	for i := 0; i < n; i++ {
		d := today.AddDays(-i)
		net := decimal.Zero
		if t, ok := totals[d]; ok {
			net = t.Net()
		}
		out = append(out, DayNet{Day: d, Net: net})
	}
	return out
}

// YearStart is the first day of the yearly window ending at today.
func YearStart(today core.Day) core.Day {
	return today.AddDays(-(YearDays - 1))
}

// Yearly sums every entry of the last YearDays calendar days, today being
// the last of them.
func Yearly(txs []core.Transaction, today core.Day, loc *time.Location) core.Totals {
	return ledger.Aggregate(ledger.Between(txs, YearStart(today), today, loc))
}

// Cache memoizes reports. The ledger is append-only, so its length together
// with the current day identifies its content.
type Cache struct {
	c *cache.Cache
}

func NewCache(ttl time.Duration) *Cache {
	return &Cache{c: cache.New(ttl, 2*ttl)}
}

func (c *Cache) DailyNet(txs []core.Transaction, today core.Day, n int, loc *time.Location) []DayNet {
	key := fmt.Sprintf("daily:%s:%d:%d", today, len(txs), n)
	if v, ok := c.c.Get(key); ok {
		return v.([]DayNet)
	}
	out := DailyNet(txs, today, n, loc)
	c.c.SetDefault(key, out)
	return out
}

func (c *Cache) Yearly(txs []core.Transaction, today core.Day, loc *time.Location) core.Totals {
	key := fmt.Sprintf("yearly:%s:%d", today, len(txs))
	if v, ok := c.c.Get(key); ok {
		return v.(core.Totals)
	}
	out := Yearly(txs, today, loc)
	c.c.SetDefault(key, out)
	return out
}

// Len reports the number of cached entries, expired ones included until
// the janitor runs.
func (c *Cache) Len() int {
	return c.c.ItemCount()
}
