package negotiation

import (
	"errors"
	"testing"
)

func TestDecideOffer(t *testing.T) {
	testCases := []struct {
		name        string
		state       State
		role        Role
		makingOffer bool

		wantIgnore   bool
		wantRollback bool
		wantErr      error
	}{
		{
			name:  "polite stable no offer in flight",
			state: StateStable, role: RolePolite,
		},
		{
			name:  "impolite stable no offer in flight",
			state: StateStable, role: RoleImpolite,
		},
		{
			name:  "impolite with local offer ignores",
			state: StateHaveLocalOffer, role: RoleImpolite,
			wantIgnore: true,
		},
		{
			name:  "impolite making offer ignores even while stable",
			state: StateStable, role: RoleImpolite, makingOffer: true,
			wantIgnore: true,
		},
		{
			name:  "polite with local offer rolls back",
			state: StateHaveLocalOffer, role: RolePolite,
			wantRollback: true,
		},
		{
			name:  "polite making offer rolls back even while stable",
			state: StateStable, role: RolePolite, makingOffer: true,
			wantRollback: true,
		},
		{
			name:  "polite with remote offer rolls back",
			state: StateHaveRemoteOffer, role: RolePolite,
			wantRollback: true,
		},
		{
			name:  "polite in local pranswer is fatal",
			state: StateHaveLocalPranswer, role: RolePolite,
			wantErr: ErrInvalidState,
		},
		{
			name:  "polite in remote pranswer is fatal",
			state: StateHaveRemotePranswer, role: RolePolite,
			wantErr: ErrInvalidState,
		},
		{
			name:  "impolite in pranswer still ignores",
			state: StateHaveLocalPranswer, role: RoleImpolite,
			wantIgnore: true,
		},
		{
			name:  "closed session rejects offers",
			state: StateClosed, role: RolePolite,
			wantErr: ErrClosed,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			outcome, err := decideOffer(tc.state, tc.role, tc.makingOffer)
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("decideOffer error = %v, want %v", err, tc.wantErr)
			}
			if outcome.ignore != tc.wantIgnore {
				t.Errorf("ignore = %v, want %v", outcome.ignore, tc.wantIgnore)
			}
			if outcome.rollback != tc.wantRollback {
				t.Errorf("rollback = %v, want %v", outcome.rollback, tc.wantRollback)
			}
		})
	}
}

func TestDescriptionConversion(t *testing.T) {
	d := Description{Type: TypeOffer, SDP: "v=0"}
	sd := d.SessionDescription()
	if got := FromSessionDescription(sd); got != d {
		t.Errorf("round trip = %+v, want %+v", got, d)
	}
}

func TestRoleOpposite(t *testing.T) {
	if RolePolite.Opposite() != RoleImpolite {
		t.Errorf("polite endpoint's peer must be impolite")
	}
	if RoleImpolite.Opposite() != RolePolite {
		t.Errorf("impolite endpoint's peer must be polite")
	}
}
