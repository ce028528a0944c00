package powermon

import "context"

// RFClient reads an RF power meter. Readings are in dBm at the meter input, no gain offset
// is applied here.
type RFClient struct {
	c *client
}

// ConnectRF opens t and identifies the meter behind it.
func ConnectRF(ctx context.Context, t Transport) (*RFClient, error) {
	c, err := dial(ctx, "rf power monitor", t)
	if err != nil {
		return nil, err
	}
	return &RFClient{c: c}, nil
}

// ID returns the identity string reported at connect time.
func (r *RFClient) ID() string { return r.c.id }

// ReadPower returns the current RF power in dBm.
func (r *RFClient) ReadPower() (float64, error) { return r.c.queryFloat(cmdPower) }

func (r *RFClient) Close() error { return r.c.close() }
