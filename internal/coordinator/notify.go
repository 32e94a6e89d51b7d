package coordinator

import (
	"strings"
)

// Notification is a server-pushed record. The "_ntype" field selects the
// handler list; producers are free to attach arbitrary further fields,
// so the payload stays an open key-value map.
type Notification map[string]any

// Type returns the notification's type tag, or "" if absent.
func (n Notification) Type() string {
	t, _ := n["_ntype"].(string)
	return t
}

// Handler receives notifications of the type it subscribed to.
type Handler func(Notification)

// ToastSink displays alert notifications to the user. Fields arrive
// renamed under the "pnotify_" prefix understood by the display layer.
type ToastSink interface {
	Show(fields map[string]any)
}

// rootToken is the placeholder substituted with the configured root path
// in every string-valued notification field.
const rootToken = "{{root}}"

// alertType gets default-field population and toast forwarding on top of
// regular handler dispatch.
const alertType = "alert"

type subscription struct {
	id      int
	handler Handler
}

// handlerTable maps notification types to ordered handler lists.
// Guarded by the coordinator mutex.
type handlerTable struct {
	handlers map[string][]subscription
	nextID   int
}

func newHandlerTable() *handlerTable {
	return &handlerTable{handlers: make(map[string][]subscription)}
}

func (t *handlerTable) subscribe(ntype string, h Handler) int {
	t.nextID++
	t.handlers[ntype] = append(t.handlers[ntype], subscription{id: t.nextID, handler: h})
	return t.nextID
}

func (t *handlerTable) unsubscribe(ntype string, id int) {
	subs := t.handlers[ntype]
	for i, s := range subs {
		if s.id == id {
			t.handlers[ntype] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// snapshot returns the current handler list for ntype in registration
// order, for invocation outside the lock.
func (t *handlerTable) snapshot(ntype string) []Handler {
	subs := t.handlers[ntype]
	out := make([]Handler, len(subs))
	for i, s := range subs {
		out[i] = s.handler
	}
	return out
}

// Subscribe registers h for notifications of the given type, after any
// handlers already registered for it. The returned id is the token for
// Unsubscribe.
func (c *Coordinator) Subscribe(ntype string, h Handler) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.table.subscribe(ntype, h)
}

// Unsubscribe removes the handler registered under id for ntype. Unknown
// ids are a no-op.
func (c *Coordinator) Unsubscribe(ntype string, id int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.table.unsubscribe(ntype, id)
}

// dispatch invokes the handlers for n's type in registration order. A
// panicking handler must not take down the remaining handlers or the
// poll loop.
func (c *Coordinator) dispatch(n Notification) {
	ntype := n.Type()
	if ntype == alertType {
		n = c.prepareAlert(n)
	}

	c.mu.Lock()
	handlers := c.table.snapshot(ntype)
	c.mu.Unlock()

	for _, h := range handlers {
		c.invoke(ntype, h, n)
	}

	if ntype == alertType && c.toasts != nil {
		c.toasts.Show(toastFields(n))
	}
}

func (c *Coordinator) invoke(ntype string, h Handler, n Notification) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("notification handler panicked", "type", ntype, "panic", r)
		}
	}()
	h(n)
}

// alertDefaults populate display fields an alert producer left out.
// Fields already present on the record are never overwritten.
var alertDefaults = map[string]any{
	"type":      "info",
	"nonblock":  true,
	"animation": "fade",
	"closer":    true,
	"delay":     8000,
}

// prepareAlert returns a copy of n with defaults applied and the root
// placeholder substituted in all string fields.
func (c *Coordinator) prepareAlert(n Notification) Notification {
	out := make(Notification, len(n)+len(alertDefaults))
	for k, v := range n {
		out[k] = v
	}
	for k, v := range alertDefaults {
		if _, ok := out[k]; !ok {
			out[k] = v
		}
	}
	for k, v := range out {
		if s, ok := v.(string); ok {
			out[k] = strings.ReplaceAll(s, rootToken, c.rootPath)
		}
	}
	return out
}

// toastFields renames every field under the fixed namespace prefix the
// toast display expects, leaving the internal tag fields behind.
func toastFields(n Notification) map[string]any {
	out := make(map[string]any, len(n))
	for k, v := range n {
		if strings.HasPrefix(k, "_n") {
			continue
		}
		out["pnotify_"+k] = v
	}
	return out
}
