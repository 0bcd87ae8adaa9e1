package gesture

import "errors"

// Publisher forwards gesture events.
type Publisher interface {
	Publish(Event) error
}

// Publishers forwards every event to each of its publishers.
type Publishers []Publisher

func (ps Publishers) Publish(e Event) error {
	var errs []error
	for _, p := range ps {
		if err := p.Publish(e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
