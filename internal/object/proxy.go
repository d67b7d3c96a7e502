package object

import (
	"errors"

	"github.com/BasixKOR/boa/internal/jsstring"
	"github.com/BasixKOR/boa/internal/value"
)

// ErrProxyInvariant is returned when a trap result contradicts the target's
// non-configurable property layout (spec.md §4.5 "Each trap result is
// validated against the target's invariants"); the VM surfaces it as a
// TypeError.
var ErrProxyInvariant = errors.New("proxy trap result violates target invariant")

// ProxyData is the kind-specific payload for KindProxy objects (spec.md §4.5
// "Proxy invariant" end-to-end scenario). Revoked proxies keep target/handler
// nil and every trap call fails with ErrRevokedProxy -- the VM translates
// that into a TypeError, matching Proxy.revocable's contract.
type ProxyData struct {
	Target  *Object
	Handler *Object
}

var errRevokedProxy = proxyRevokedError{}

type proxyRevokedError struct{}

func (proxyRevokedError) Error() string { return "cannot perform operation on a proxy that has been revoked" }

// ErrRevokedProxy is returned by every Proxy trap dispatch once Revoke has
// been called.
var ErrRevokedProxy error = errRevokedProxy

// NewProxy constructs a Proxy exotic object over target/handler (spec.md
// §4.5). Every internal method not explicitly trapped forwards to target's
// own internal method, per the ECMAScript Proxy invariant table.
func NewProxy(o *Object, target, handler *Object) *Object {
	o.SetKind(KindProxy)
	o.SetData(&ProxyData{Target: target, Handler: handler})
	vt := proxyVTable
	if target.IsCallable() {
		vt.Call = proxyCall
	}
	if target.IsConstructor() {
		vt.Construct = proxyConstruct
	}
	o.SetVTable(&vt)
	return o
}

// Revoke detaches a proxy from its target/handler, the effect of calling the
// revoke function Proxy.revocable returns.
func (o *Object) Revoke() {
	if d, ok := o.Data().(*ProxyData); ok {
		d.Target = nil
		d.Handler = nil
	}
}

var proxyVTable = VTable{
	GetOwnProperty:    proxyGetOwnProperty,
	DefineOwnProperty: proxyDefineOwnProperty,
	HasProperty:       proxyHasProperty,
	Get:               proxyGet,
	Set:               proxySet,
	Delete:            proxyDelete,
	OwnPropertyKeys:   proxyOwnPropertyKeys,
	GetPrototypeOf:    proxyGetPrototypeOf,
	SetPrototypeOf:    proxySetPrototypeOf,
	IsExtensible:      proxyIsExtensible,
	PreventExtensions: proxyPreventExtensions,
}

func proxyData(o *Object) (*ProxyData, error) {
	d := o.Data().(*ProxyData)
	if d.Target == nil {
		return nil, ErrRevokedProxy
	}
	return d, nil
}

// trap looks up handler[name]; an undefined/null trap means "forward to
// target" per spec, signaled by ok=false (with value.Undefined).
func trap(inv Invoker, handler *Object, name string) (value.Value, bool, error) {
	v, err := handler.VTable().Get(handler, inv, handler.Key(name), value.Object(handler))
	if err != nil {
		return value.Undefined, false, err
	}
	if v.IsNullish() {
		return value.Undefined, false, nil
	}
	return v, true, nil
}

func proxyGetOwnProperty(o *Object, inv Invoker, key PropertyKey) (Descriptor, bool, error) {
	d, err := proxyData(o)
	if err != nil {
		return Descriptor{}, false, err
	}
	fn, ok, err := trap(inv, d.Handler, "getOwnPropertyDescriptor")
	if err != nil || !ok {
		if err != nil {
			return Descriptor{}, false, err
		}
		return d.Target.VTable().GetOwnProperty(d.Target, inv, key)
	}
	result, err := inv.Call(fn, value.Object(d.Handler), []value.Value{value.Object(d.Target), keyValue(key)})
	if err != nil {
		return Descriptor{}, false, err
	}
	if result.IsUndefined() {
		return Descriptor{}, false, nil
	}
	return descriptorFromValue(result), true, nil
}

func proxyDefineOwnProperty(o *Object, inv Invoker, key PropertyKey, desc Descriptor) (bool, error) {
	d, err := proxyData(o)
	if err != nil {
		return false, err
	}
	fn, ok, err := trap(inv, d.Handler, "defineProperty")
	if err != nil {
		return false, err
	}
	if !ok {
		return d.Target.VTable().DefineOwnProperty(d.Target, inv, key, desc)
	}
	result, err := inv.Call(fn, value.Object(d.Handler), []value.Value{value.Object(d.Target), keyValue(key), descriptorToValue(o, inv, desc)})
	return result.ToBoolean(), err
}

func proxyHasProperty(o *Object, inv Invoker, key PropertyKey) (bool, error) {
	d, err := proxyData(o)
	if err != nil {
		return false, err
	}
	fn, ok, err := trap(inv, d.Handler, "has")
	if err != nil {
		return false, err
	}
	if !ok {
		return d.Target.VTable().HasProperty(d.Target, inv, key)
	}
	result, err := inv.Call(fn, value.Object(d.Handler), []value.Value{value.Object(d.Target), keyValue(key)})
	return result.ToBoolean(), err
}

func proxyGet(o *Object, inv Invoker, key PropertyKey, receiver value.Value) (value.Value, error) {
	d, err := proxyData(o)
	if err != nil {
		return value.Undefined, err
	}
	fn, ok, err := trap(inv, d.Handler, "get")
	if err != nil {
		return value.Undefined, err
	}
	if !ok {
		return d.Target.VTable().Get(d.Target, inv, key, receiver)
	}
	result, err := inv.Call(fn, value.Object(d.Handler), []value.Value{value.Object(d.Target), keyValue(key), receiver})
	if err != nil {
		return value.Undefined, err
	}
	// Invariant: a non-configurable non-writable data property on the target
	// pins the trap result to the target's own value; a non-configurable
	// accessor with no getter pins it to undefined (spec.md §8 scenario 5).
	targetDesc, present, err := d.Target.VTable().GetOwnProperty(d.Target, inv, key)
	if err != nil {
		return value.Undefined, err
	}
	if present && !targetDesc.Configurable {
		if targetDesc.IsData() && !targetDesc.Writable && !value.SameValue(result, targetDesc.Value) {
			return value.Undefined, ErrProxyInvariant
		}
		if targetDesc.IsAccessor() && targetDesc.Get.IsUndefined() && !result.IsUndefined() {
			return value.Undefined, ErrProxyInvariant
		}
	}
	return result, nil
}

func proxySet(o *Object, inv Invoker, key PropertyKey, v value.Value, receiver value.Value) (bool, error) {
	d, err := proxyData(o)
	if err != nil {
		return false, err
	}
	fn, ok, err := trap(inv, d.Handler, "set")
	if err != nil {
		return false, err
	}
	if !ok {
		return d.Target.VTable().Set(d.Target, inv, key, v, receiver)
	}
	result, err := inv.Call(fn, value.Object(d.Handler), []value.Value{value.Object(d.Target), keyValue(key), v, receiver})
	if err != nil || !result.ToBoolean() {
		return false, err
	}
	targetDesc, present, err := d.Target.VTable().GetOwnProperty(d.Target, inv, key)
	if err != nil {
		return false, err
	}
	if present && !targetDesc.Configurable {
		if targetDesc.IsData() && !targetDesc.Writable && !value.SameValue(v, targetDesc.Value) {
			return false, ErrProxyInvariant
		}
		if targetDesc.IsAccessor() && targetDesc.Set.IsUndefined() {
			return false, ErrProxyInvariant
		}
	}
	return true, nil
}

func proxyDelete(o *Object, inv Invoker, key PropertyKey) (bool, error) {
	d, err := proxyData(o)
	if err != nil {
		return false, err
	}
	fn, ok, err := trap(inv, d.Handler, "deleteProperty")
	if err != nil {
		return false, err
	}
	if !ok {
		return d.Target.VTable().Delete(d.Target, inv, key)
	}
	result, err := inv.Call(fn, value.Object(d.Handler), []value.Value{value.Object(d.Target), keyValue(key)})
	return result.ToBoolean(), err
}

func proxyOwnPropertyKeys(o *Object, inv Invoker) ([]PropertyKey, error) {
	d, err := proxyData(o)
	if err != nil {
		return nil, err
	}
	fn, ok, err := trap(inv, d.Handler, "ownKeys")
	if err != nil {
		return nil, err
	}
	if !ok {
		return d.Target.VTable().OwnPropertyKeys(d.Target, inv)
	}
	result, err := inv.Call(fn, value.Object(d.Handler), []value.Value{value.Object(d.Target)})
	if err != nil {
		return nil, err
	}
	resObj, ok2 := result.Object_().(*Object)
	if !ok2 {
		return nil, nil
	}
	it, err := IteratorFromArrayLike(resObj, inv)
	if err != nil {
		return nil, err
	}
	var keys []PropertyKey
	for {
		v, done, err := it.Next()
		if err != nil || done {
			return keys, err
		}
		keys = append(keys, o.valueToKey(v))
	}
}

func proxyGetPrototypeOf(o *Object, inv Invoker) (*Object, error) {
	d, err := proxyData(o)
	if err != nil {
		return nil, err
	}
	fn, ok, err := trap(inv, d.Handler, "getPrototypeOf")
	if err != nil {
		return nil, err
	}
	if !ok {
		return d.Target.VTable().GetPrototypeOf(d.Target, inv)
	}
	result, err := inv.Call(fn, value.Object(d.Handler), []value.Value{value.Object(d.Target)})
	if err != nil {
		return nil, err
	}
	if result.IsNull() {
		return nil, nil
	}
	p, _ := result.Object_().(*Object)
	return p, nil
}

func proxySetPrototypeOf(o *Object, inv Invoker, proto *Object) (bool, error) {
	d, err := proxyData(o)
	if err != nil {
		return false, err
	}
	fn, ok, err := trap(inv, d.Handler, "setPrototypeOf")
	if err != nil {
		return false, err
	}
	protoVal := value.Null
	if proto != nil {
		protoVal = value.Object(proto)
	}
	if !ok {
		return d.Target.VTable().SetPrototypeOf(d.Target, inv, proto)
	}
	result, err := inv.Call(fn, value.Object(d.Handler), []value.Value{value.Object(d.Target), protoVal})
	return result.ToBoolean(), err
}

func proxyIsExtensible(o *Object, inv Invoker) (bool, error) {
	d, err := proxyData(o)
	if err != nil {
		return false, err
	}
	fn, ok, err := trap(inv, d.Handler, "isExtensible")
	if err != nil {
		return false, err
	}
	if !ok {
		return d.Target.VTable().IsExtensible(d.Target, inv)
	}
	result, err := inv.Call(fn, value.Object(d.Handler), []value.Value{value.Object(d.Target)})
	return result.ToBoolean(), err
}

func proxyPreventExtensions(o *Object, inv Invoker) (bool, error) {
	d, err := proxyData(o)
	if err != nil {
		return false, err
	}
	fn, ok, err := trap(inv, d.Handler, "preventExtensions")
	if err != nil {
		return false, err
	}
	if !ok {
		return d.Target.VTable().PreventExtensions(d.Target, inv)
	}
	result, err := inv.Call(fn, value.Object(d.Handler), []value.Value{value.Object(d.Target)})
	return result.ToBoolean(), err
}

func proxyCall(o *Object, inv Invoker, this value.Value, args []value.Value) (value.Value, error) {
	d, err := proxyData(o)
	if err != nil {
		return value.Undefined, err
	}
	fn, ok, err := trap(inv, d.Handler, "apply")
	if err != nil {
		return value.Undefined, err
	}
	if !ok {
		return d.Target.VTable().Call(d.Target, inv, this, args)
	}
	argsObj := newArgsArrayForTrap(o, args)
	return inv.Call(fn, value.Object(d.Handler), []value.Value{value.Object(d.Target), this, value.Object(argsObj)})
}

func proxyConstruct(o *Object, inv Invoker, args []value.Value, newTarget *Object) (value.Value, error) {
	d, err := proxyData(o)
	if err != nil {
		return value.Undefined, err
	}
	fn, ok, err := trap(inv, d.Handler, "construct")
	if err != nil {
		return value.Undefined, err
	}
	if !ok {
		return d.Target.VTable().Construct(d.Target, inv, args, newTarget)
	}
	argsObj := newArgsArrayForTrap(o, args)
	nt := value.Object(o)
	if newTarget != nil {
		nt = value.Object(newTarget)
	}
	return inv.Call(fn, value.Object(d.Handler), []value.Value{value.Object(d.Target), value.Object(argsObj), nt})
}

// newArgsArrayForTrap builds a plain Array to hand a Proxy trap its argument
// list; it deliberately bypasses any realm array-prototype wiring since the
// trap only ever reads indices/length off it.
func newArgsArrayForTrap(owner *Object, args []value.Value) *Object {
	o := New(0, owner.tree, owner.tree.Root(), nil)
	NewArray(o)
	for i, a := range args {
		o.SetElement(uint32(i), a)
	}
	d := arrayData(o)
	d.Length = uint32(len(args))
	return o
}

func keyValue(k PropertyKey) value.Value {
	if k.IsSym {
		return value.SymbolValue(k.Sym)
	}
	return value.String(jsstring.New(k.Text))
}

func (o *Object) valueToKey(v value.Value) PropertyKey {
	if v.IsSymbol() {
		return SymbolKey(v.Symbol_())
	}
	return o.Key(v.String_().GoString())
}

func descriptorFromValue(v value.Value) Descriptor {
	obj, ok := v.Object_().(*Object)
	if !ok {
		return Descriptor{}
	}
	d := Descriptor{}
	if val, present, _ := obj.VTable().GetOwnProperty(obj, nil, obj.Key("value")); present {
		d.Value, d.HasValue = val.Value, true
	}
	if val, present, _ := obj.VTable().GetOwnProperty(obj, nil, obj.Key("writable")); present {
		d.Writable, d.HasWritable = val.Value.ToBoolean(), true
	}
	if val, present, _ := obj.VTable().GetOwnProperty(obj, nil, obj.Key("enumerable")); present {
		d.Enumerable, d.HasEnumerable = val.Value.ToBoolean(), true
	}
	if val, present, _ := obj.VTable().GetOwnProperty(obj, nil, obj.Key("configurable")); present {
		d.Configurable, d.HasConfigurable = val.Value.ToBoolean(), true
	}
	if val, present, _ := obj.VTable().GetOwnProperty(obj, nil, obj.Key("get")); present {
		d.Get, d.HasGet = val.Value, true
	}
	if val, present, _ := obj.VTable().GetOwnProperty(obj, nil, obj.Key("set")); present {
		d.Set, d.HasSet = val.Value, true
	}
	return d
}

func descriptorToValue(owner *Object, inv Invoker, d Descriptor) value.Value {
	plain := New(0, owner.tree, owner.tree.Root(), nil)
	put := func(name string, v value.Value) {
		plain.VTable().DefineOwnProperty(plain, inv, plain.Key(name), Descriptor{
			HasValue: true, Value: v, Writable: true, Enumerable: true, Configurable: true,
			HasWritable: true, HasEnumerable: true, HasConfigurable: true,
		})
	}
	if d.IsAccessor() {
		if d.HasGet {
			put("get", d.Get)
		}
		if d.HasSet {
			put("set", d.Set)
		}
	} else if d.HasValue {
		put("value", d.Value)
	}
	if d.HasWritable {
		put("writable", value.Bool(d.Writable))
	}
	if d.HasEnumerable {
		put("enumerable", value.Bool(d.Enumerable))
	}
	if d.HasConfigurable {
		put("configurable", value.Bool(d.Configurable))
	}
	return value.Object(plain)
}
