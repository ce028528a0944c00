package powermon

import "context"

// DCClient reads a shunt/bus DC power monitor.
type DCClient struct {
	c *client
}

// ConnectDC opens t and identifies the meter behind it.
func ConnectDC(ctx context.Context, t Transport) (*DCClient, error) {
	c, err := dial(ctx, "dc power monitor", t)
	if err != nil {
		return nil, err
	}
	return &DCClient{c: c}, nil
}

// ID returns the identity string reported at connect time.
func (d *DCClient) ID() string { return d.c.id }

// ReadPower returns the DC power in mW.
func (d *DCClient) ReadPower() (float64, error) { return d.c.queryFloat(cmdPower) }

// ReadCurrent returns the shunt current in mA.
func (d *DCClient) ReadCurrent() (float64, error) { return d.c.queryFloat(cmdCurrent) }

// ReadShuntVoltage returns the shunt voltage in mV.
func (d *DCClient) ReadShuntVoltage() (float64, error) { return d.c.queryFloat(cmdShuntVoltage) }

// ReadBusVoltage returns the bus voltage in V.
func (d *DCClient) ReadBusVoltage() (float64, error) { return d.c.queryFloat(cmdBusVoltage) }

func (d *DCClient) Close() error { return d.c.close() }
