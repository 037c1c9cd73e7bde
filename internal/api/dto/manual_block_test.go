package dto

import (
	"encoding/json"
	"testing"
)

func TestAddManualBlockRequestExpiresHours(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    *int
		wantErr bool
	}{
		{name: "number", body: `{"expires_hours":24}`, want: intPtr(24)},
		{name: "numeric string", body: `{"expires_hours":"1"}`, want: intPtr(1)},
		{name: "padded string", body: `{"expires_hours":" 12 "}`, want: intPtr(12)},
		{name: "null", body: `{"expires_hours":null}`},
		{name: "missing", body: `{"ip_address":"10.0.0.1"}`},
		{name: "empty string", body: `{"expires_hours":""}`},
		{name: "negative string", body: `{"expires_hours":"-2"}`, want: intPtr(-2)},
		{name: "word", body: `{"expires_hours":"soon"}`, wantErr: true},
		{name: "fraction", body: `{"expires_hours":1.5}`, wantErr: true},
		{name: "bool", body: `{"expires_hours":true}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req AddManualBlockRequest
			err := json.Unmarshal([]byte(tt.body), &req)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got %v", req.ExpiresHours.Ptr())
				}
				return
			}
			if err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}

			got := req.ExpiresHours.Ptr()
			switch {
			case tt.want == nil && got != nil:
				t.Fatalf("got %d, want unset", *got)
			case tt.want != nil && got == nil:
				t.Fatalf("got unset, want %d", *tt.want)
			case tt.want != nil && *got != *tt.want:
				t.Fatalf("got %d, want %d", *got, *tt.want)
			}
		})
	}
}

func intPtr(v int) *int {
	return &v
}
