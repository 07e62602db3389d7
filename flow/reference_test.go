package flow_test

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"verification-service/flow"
)

func TestExtractReference(t *testing.T) {
	tests := []struct {
		name  string
		query url.Values
		want  string
	}{
		{
			name:  "standard name",
			query: url.Values{"reference": {"TXN-1"}},
			want:  "TXN-1",
		},
		{
			name:  "standard name beats aliases",
			query: url.Values{"reference": {"TXN-1"}, "trxref": {"TXN-2"}, "order_id": {"TXN-3"}},
			want:  "TXN-1",
		},
		{
			name:  "trxref alias",
			query: url.Values{"trxref": {"TXN-2"}},
			want:  "TXN-2",
		},
		{
			name:  "trxref beats order_id",
			query: url.Values{"trxref": {"TXN-2"}, "order_id": {"TXN-3"}},
			want:  "TXN-2",
		},
		{
			name:  "order_id alias",
			query: url.Values{"order_id": {"TXN-3"}},
			want:  "TXN-3",
		},
		{
			name:  "empty values are skipped",
			query: url.Values{"reference": {""}, "trxref": {"TXN-2"}},
			want:  "TXN-2",
		},
		{
			name:  "no reference",
			query: url.Values{"foo": {"bar"}},
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, flow.ExtractReference(tt.query))
		})
	}
}
