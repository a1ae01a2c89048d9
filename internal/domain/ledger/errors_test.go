package ledger

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{name: "バージョン競合", err: ErrVersionConflict, want: true},
		{name: "ラップされたバージョン競合", err: fmt.Errorf("確定に失敗: %w", ErrVersionConflict), want: true},
		{name: "満席", err: ErrCapacityExceeded, want: false},
		{name: "その他", err: errors.New("boom"), want: false},
		{name: "nil", err: nil, want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsRetryable(tt.err))
		})
	}
}
