// Package numbering issues human-readable document numbers (PO-000042, SO-000007, ...).
package numbering

import (
	"context"
	"fmt"
	"time"

	"warehouse-backend/internal/config"

	"github.com/sirupsen/logrus"
)

type Kind string

const (
	PurchaseOrder Kind = "PO"
	Receipt       Kind = "RCV"
	SaleOrder     Kind = "SO"
	Shipment      Kind = "SHP"
)

// Sequence returns the next value of a named, monotonically increasing counter.
type Sequence interface {
	Next(ctx context.Context, name string) (int64, error)
}

type Generator struct {
	seq Sequence
	now func() time.Time
}

func NewGenerator(seq Sequence) *Generator {
	return &Generator{seq: seq, now: time.Now}
}

// Next never fails: when the counter is unreachable it falls back to a timestamp number,
// which is still unique per process and sorts after every counter value.
func (g *Generator) Next(ctx context.Context, kind Kind) string {
	n, err := g.seq.Next(ctx, "seq:"+string(kind))
	if err != nil {
		config.LogError("numbering", "Next", logrus.Fields{"kind": kind}, err)
		return fmt.Sprintf("%s-%d", kind, g.now().UnixNano())
	}
	return fmt.Sprintf("%s-%06d", kind, n)
}
