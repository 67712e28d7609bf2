package app

import "github.com/railcore/mc2core/internal/model"

// CoupleAction links locomotives into a consist led by the first address
// given; a negative address marks that member as running reversed
// relative to the lead (spec.md 3/8 scenario #5).
func (app *LocoApp) CoupleAction(addrs []int32) error {
	if err := app.initializeCore(); err != nil {
		return err
	}
	defer app.Core.Stop()

	members := make([]model.ConsistMember, len(addrs))
	for i, a := range addrs {
		members[i] = model.ConsistMember(a)
	}
	return app.Core.Couple(members...)
}

// UncoupleAction removes one member from the consist led by lead.
func (app *LocoApp) UncoupleAction(lead, addr uint16) error {
	if err := app.initializeCore(); err != nil {
		return err
	}
	defer app.Core.Stop()

	return app.Core.Uncouple(lead, addr)
}

// DissolveAction removes the whole consist led by lead.
func (app *LocoApp) DissolveAction(lead uint16) error {
	if err := app.initializeCore(); err != nil {
		return err
	}
	defer app.Core.Stop()

	app.Core.Dissolve(lead)
	return nil
}
