package control

import (
	"context"
	"fmt"

	"github.com/genricoloni/veloframe/internal/domain"
	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"go.uber.org/zap"
)

const (
	BusName    = "org.veloframe.Slideshow"
	Interface  = "org.veloframe.Slideshow"
	ObjectPath = dbus.ObjectPath("/org/veloframe/Slideshow")
)

const introspectXML = `
<node>
	<interface name="` + Interface + `">
		<method name="Next"/>
		<method name="Previous"/>
		<method name="NextImmediate"/>
		<method name="PreviousImmediate"/>
		<method name="TogglePause"/>
		<method name="Rescan"/>
		<method name="Quit"/>
	</interface>` + introspect.IntrospectDataString + `</node>`

// BusConn defines the D-Bus operations the controller needs.
// *dbus.Conn satisfies it; tests use a gomock mock.
//
//go:generate mockgen -destination=mocks/bus_conn_mock.go -package=mocks github.com/genricoloni/veloframe/internal/control BusConn
type BusConn interface {
	// RequestName claims a well-known name on the bus
	RequestName(name string, flags dbus.RequestNameFlags) (dbus.RequestNameReply, error)

	// Export publishes the methods of v at path under iface
	Export(v interface{}, path dbus.ObjectPath, iface string) error

	// Close closes the D-Bus connection
	Close() error
}

// ConnectSessionBus opens a private session bus connection
func ConnectSessionBus() (BusConn, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// DBusController exposes slideshow commands on the session bus, e.g.
//
//	dbus-send --session --dest=org.veloframe.Slideshow /org/veloframe/Slideshow org.veloframe.Slideshow.Next
type DBusController struct {
	*emitter
	lc   lifecycle
	dial func() (BusConn, error)
}

// NewDBusController creates a controller that connects to the session bus on Start
func NewDBusController(logger *zap.Logger) *DBusController {
	return &DBusController{
		emitter: newEmitter(logger),
		dial:    ConnectSessionBus,
	}
}

// Start claims the bus name and serves method calls until ctx is cancelled
func (c *DBusController) Start(ctx context.Context) error {
	if c.isClosed() {
		return nil
	}
	runCtx, ok := c.lc.begin(ctx)
	if !ok {
		return nil
	}
	defer c.lc.end()

	conn, err := c.dial()
	if err != nil {
		c.logger.Error("Failed to connect to session bus", zap.Error(err))
		return fmt.Errorf("session bus connection failed: %w", err)
	}
	defer func() {
		if err := conn.Close(); err != nil {
			c.logger.Warn("Failed to close D-Bus connection", zap.Error(err))
		}
	}()

	reply, err := conn.RequestName(BusName, dbus.NameFlagDoNotQueue)
	if err != nil {
		return fmt.Errorf("failed to request bus name: %w", err)
	}
	if reply != dbus.RequestNameReplyPrimaryOwner {
		return fmt.Errorf("bus name %s already taken (is another slideshow running?)", BusName)
	}

	if err := conn.Export(&slideshowObject{c: c}, ObjectPath, Interface); err != nil {
		return fmt.Errorf("failed to export slideshow object: %w", err)
	}
	if err := conn.Export(introspect.Introspectable(introspectXML), ObjectPath, "org.freedesktop.DBus.Introspectable"); err != nil {
		c.logger.Warn("Failed to export introspection data", zap.Error(err))
	}

	c.logger.Info("D-Bus control enabled",
		zap.String("name", BusName),
		zap.String("path", string(ObjectPath)))

	<-runCtx.Done()

	c.logger.Info("D-Bus control stopped")
	return runCtx.Err()
}

// Stop gracefully stops the controller and closes its command channel
func (c *DBusController) Stop(ctx context.Context) error {
	err := c.lc.stop(ctx)
	c.close()
	return err
}

// slideshowObject is exported on the bus; godbus calls its methods from its own goroutines
type slideshowObject struct {
	c *DBusController
}

func (o *slideshowObject) send(cmd domain.Command) *dbus.Error {
	if !o.c.emit(cmd) {
		return dbus.MakeFailedError(fmt.Errorf("slideshow busy, %s dropped", cmd))
	}
	return nil
}

func (o *slideshowObject) Next() *dbus.Error              { return o.send(domain.CmdNext) }
func (o *slideshowObject) Previous() *dbus.Error          { return o.send(domain.CmdPrevious) }
func (o *slideshowObject) NextImmediate() *dbus.Error     { return o.send(domain.CmdNextImmediate) }
func (o *slideshowObject) PreviousImmediate() *dbus.Error { return o.send(domain.CmdPreviousImmediate) }
func (o *slideshowObject) TogglePause() *dbus.Error       { return o.send(domain.CmdTogglePause) }
func (o *slideshowObject) Rescan() *dbus.Error            { return o.send(domain.CmdRescan) }
func (o *slideshowObject) Quit() *dbus.Error              { return o.send(domain.CmdQuit) }
