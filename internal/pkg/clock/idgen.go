package clock

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator は一意な識別子を生成する
type IDGenerator interface {
	NewID() string
}

type uuidGenerator struct{}

// NewUUIDGenerator は UUID v4 を返す IDGenerator を作成する
func NewUUIDGenerator() IDGenerator {
	return uuidGenerator{}
}

func (uuidGenerator) NewID() string {
	return uuid.NewString()
}

// Sequence は prefix-1, prefix-2, ... を返す決定的な IDGenerator（テスト用）
type Sequence struct {
	prefix string
	n      atomic.Int64
}

// NewSequence は新しい Sequence を作成する
func NewSequence(prefix string) *Sequence {
	return &Sequence{prefix: prefix}
}

func (s *Sequence) NewID() string {
	return fmt.Sprintf("%s-%d", s.prefix, s.n.Add(1))
}
