package vm

import (
	"github.com/BasixKOR/boa/internal/bytecode"
	"github.com/BasixKOR/boa/internal/environment"
	"github.com/BasixKOR/boa/internal/errors"
	"github.com/BasixKOR/boa/internal/object"
	"github.com/BasixKOR/boa/internal/value"
)

// privateAccessorPair is the payload of the placeholder object a private
// get/set element stores in the instance's private list; OpGetPrivate and
// OpSetPrivate unwrap it and call through.
type privateAccessorPair struct {
	Get, Set value.Value
}

// buildClass executes OpNewClass: evaluate the heritage (already on the
// stack when info.HasSuper), wire the constructor/prototype pair, define
// methods and static elements, collect instance elements into the
// constructor's FunctionData, and push the constructor (spec.md §4.3
// "PushClassPrototype ... PushClassField ... PushClassPrivate*" family,
// collapsed here into one table-driven instruction).
func (vm *VM) buildClass(f *Frame, ctorCB *bytecode.CodeBlock, info bytecode.ClassInfo) error {
	protoParent := vm.Intr.ObjectProto
	ctorParent := vm.Intr.FunctionProto
	hasProtoParent := true
	if info.HasSuper {
		superV := f.pop()
		if superV.IsNull() {
			hasProtoParent = false
		} else {
			sc, ok := asObject(superV)
			if !ok || !sc.IsConstructor() {
				return vm.throwKind(errors.KindType, "class heritage is not a constructor")
			}
			ctorParent = sc
			protoV, err := vm.GetProperty(superV, vm.KeyFromString("prototype"))
			if err != nil {
				return err
			}
			pp, ok := asObject(protoV)
			if !ok && !protoV.IsNull() {
				return vm.throwKind(errors.KindType, "class heritage prototype is not an object or null")
			}
			protoParent = pp
			hasProtoParent = pp != nil
		}
	}

	var proto *object.Object
	if hasProtoParent {
		proto = vm.NewObject(protoParent)
	} else {
		proto = vm.NewObject(nil)
	}

	// The class body's own scope: holds the inner class-name binding and is
	// the depth the compiler resolved every body-internal reference against.
	classEnv := environment.NewDeclarative(vm.Heap.NextID(), f.env, info.NumSlots)
	vm.Heap.Register(classEnv)

	// One Private environment covers the constructor, every method body,
	// and every initializer (spec.md §3 "Private -- carries the set of
	// private names visible inside a class body").
	var privEnv *environment.Env
	if len(info.PrivateNames) > 0 {
		names := make([]*environment.PrivateName, len(info.PrivateNames))
		for i, desc := range info.PrivateNames {
			en := &environment.PrivateName{Description: desc}
			names[i] = en
			vm.privMap[en] = &object.PrivateName{Description: desc}
		}
		privEnv = environment.NewPrivate(vm.Heap.NextID(), classEnv, names)
		vm.Heap.Register(privEnv)
	}

	ctorFD := &FunctionData{
		CB:            ctorCB,
		Env:           classEnv,
		Name:          ctorCB.Name,
		Length:        ctorCB.ParamCount,
		HomeObject:    proto,
		PrivEnv:       privEnv,
		IsClassCtor:   true,
		IsDerivedCtor: ctorCB.IsDerivedConstructor,
	}
	if privEnv != nil {
		ctorFD.Env = privEnv
	}
	ctor := vm.NewFunctionObject(ctorFD, true)
	if info.NameSlot >= 0 {
		classEnv.InitSlot(int(info.NameSlot), 0, environment.BindingImmutable, value.Object(ctor))
	}
	if ctorParent != vm.Intr.FunctionProto {
		if _, err := ctor.VTable().SetPrototypeOf(ctor, vm, ctorParent); err != nil {
			return vm.normalizeObjectError(err)
		}
	}
	vm.DefineHiddenProperty(ctor, vm.KeyFromString("prototype"), value.Object(proto))
	vm.DefineHiddenProperty(proto, vm.KeyFromString("constructor"), value.Object(ctor))
	if info.Name != "" {
		vm.DefineHiddenProperty(ctor, vm.KeyFromString("name"), stringValue(info.Name))
	}

	closureEnv := classEnv
	if privEnv != nil {
		closureEnv = privEnv
	}

	for _, el := range info.Elements {
		if err := vm.defineClassElement(f, ctor, proto, closureEnv, privEnv, el); err != nil {
			return err
		}
	}

	f.push(value.Object(ctor))
	return nil
}

// defineClassElement installs one class element: methods/accessors on the
// prototype (or constructor when static), fields and private methods into
// the constructor's instance-element list, static fields/blocks evaluated
// immediately against the class object (spec.md §4.2 class evaluation
// order).
func (vm *VM) defineClassElement(f *Frame, ctor, proto *object.Object, closureEnv, privEnv *environment.Env, el bytecode.ClassElement) error {
	ctorFD := ctor.Data().(*FunctionData)

	target := proto
	if el.Static {
		target = ctor
	}

	makeMethod := func(cb *bytecode.CodeBlock) *object.Object {
		cb.IsMethod = true
		fd := &FunctionData{
			CB: cb, Env: closureEnv, Name: cb.Name, Length: cb.ParamCount,
			HomeObject: target, PrivEnv: privEnv,
		}
		return vm.NewFunctionObject(fd, false)
	}

	elementKey := func() (object.PropertyKey, error) {
		if el.Computed {
			kv, err := vm.runClassElementBlock(closureEnv, f.fn, el.KeyBlock, value.Undefined, false)
			if err != nil {
				return object.PropertyKey{}, err
			}
			return vm.MakeKey(kv)
		}
		return vm.MakeKey(el.Key)
	}

	switch el.Kind {
	case bytecode.ClassMethod:
		m := makeMethod(el.Proto)
		if el.Private {
			pn := vm.privateNameFor(privEnv, el.PrivateIndex, f.cb)
			if el.Static {
				ctor.SetPrivate(pn, value.Object(m))
			} else {
				ctorFD.Fields = append(ctorFD.Fields, FieldInit{Private: pn, Method: value.Object(m), IsMethod: true})
			}
			return nil
		}
		key, err := elementKey()
		if err != nil {
			return err
		}
		vm.DefineHiddenProperty(target, key, value.Object(m))
	case bytecode.ClassGetter, bytecode.ClassSetter:
		m := makeMethod(el.Proto)
		isGetter := el.Kind == bytecode.ClassGetter
		if el.Private {
			pn := vm.privateNameFor(privEnv, el.PrivateIndex, f.cb)
			pair := vm.privateAccessorFor(el.Static, ctor, ctorFD, pn)
			if isGetter {
				pair.Get = value.Object(m)
			} else {
				pair.Set = value.Object(m)
			}
			return nil
		}
		key, err := elementKey()
		if err != nil {
			return err
		}
		return vm.defineAccessor(target, key, value.Object(m), isGetter)
	case bytecode.ClassField:
		if el.Private {
			pn := vm.privateNameFor(privEnv, el.PrivateIndex, f.cb)
			if el.Static {
				v := value.Undefined
				if el.FieldInit != nil {
					var err error
					v, err = vm.runClassElementBlock(closureEnv, f.fn, el.FieldInit, value.Object(ctor), true)
					if err != nil {
						return err
					}
				}
				ctor.SetPrivate(pn, v)
				return nil
			}
			ctorFD.Fields = append(ctorFD.Fields, FieldInit{Private: pn, Init: el.FieldInit})
			return nil
		}
		key, err := elementKey()
		if err != nil {
			return err
		}
		if el.Static {
			v := value.Undefined
			if el.FieldInit != nil {
				v, err = vm.runClassElementBlock(closureEnv, f.fn, el.FieldInit, value.Object(ctor), true)
				if err != nil {
					return err
				}
			}
			return vm.DefineDataProperty(ctor, key, v)
		}
		ctorFD.Fields = append(ctorFD.Fields, FieldInit{Key: key, HasKey: true, Init: el.FieldInit})
	case bytecode.ClassStaticBlock:
		if _, err := vm.runClassElementBlock(closureEnv, f.fn, el.Proto, value.Object(ctor), true); err != nil {
			return err
		}
	}
	return nil
}

// privateAccessorFor finds or creates the accessor pair for a private
// getter/setter declaration, either on the class object (static) or in the
// constructor's instance-element list.
func (vm *VM) privateAccessorFor(static bool, ctor *object.Object, ctorFD *FunctionData, pn *object.PrivateName) *privateAccessorPair {
	if static {
		if existing, ok := ctor.GetPrivate(pn); ok {
			if o, ok := asObject(existing); ok {
				if pair, ok := o.Data().(*privateAccessorPair); ok {
					return pair
				}
			}
		}
		pair := &privateAccessorPair{Get: value.Undefined, Set: value.Undefined}
		holder := vm.NewObject(nil)
		holder.SetData(pair)
		ctor.SetPrivate(pn, value.Object(holder))
		return pair
	}
	for i := range ctorFD.Fields {
		fi := &ctorFD.Fields[i]
		if fi.Private == pn && fi.IsMethod {
			if o, ok := asObject(fi.Method); ok {
				if pair, ok := o.Data().(*privateAccessorPair); ok {
					return pair
				}
			}
		}
	}
	pair := &privateAccessorPair{Get: value.Undefined, Set: value.Undefined}
	holder := vm.NewObject(nil)
	holder.SetData(pair)
	ctorFD.Fields = append(ctorFD.Fields, FieldInit{Private: pn, Method: value.Object(holder), IsMethod: true})
	return pair
}

// runClassElementBlock executes a computed-key / field-initializer / static
// block CodeBlock against the class body's environment, with `this`
// carried as a frame override since the block shares that environment
// rather than owning a function activation (see bytecode.Compiler's
// compileKeyedBody).
func (vm *VM) runClassElementBlock(env *environment.Env, fn *object.Object, cb *bytecode.CodeBlock, this value.Value, hasThis bool) (value.Value, error) {
	sub := &Frame{cb: cb, fn: fn, env: env, thisOverride: this, hasThisOverride: hasThis}
	return vm.runToCompletion(sub)
}

// initializeInstance installs the constructor's instance elements on a
// freshly allocated `this`: private methods first, then field initializers
// in declaration order (spec.md §4.2 class semantics).
func (vm *VM) initializeInstance(fd *FunctionData, thisObj *object.Object) error {
	for _, fi := range fd.Fields {
		if fi.IsMethod {
			thisObj.SetPrivate(fi.Private, fi.Method)
		}
	}
	for _, fi := range fd.Fields {
		if fi.IsMethod {
			continue
		}
		v := value.Undefined
		if fi.Init != nil {
			env := fd.Env
			sub := &Frame{cb: fi.Init, env: env, thisOverride: value.Object(thisObj), hasThisOverride: true}
			var err error
			v, err = vm.runToCompletion(sub)
			if err != nil {
				return err
			}
		}
		if fi.Private != nil {
			thisObj.SetPrivate(fi.Private, v)
			continue
		}
		if err := vm.DefineDataProperty(thisObj, fi.Key, v); err != nil {
			return err
		}
	}
	return nil
}

// superCall executes super(...): construct the active constructor's parent
// with the frame's new.target, bind the result as `this`, then run the
// derived class's instance elements (spec.md §4.4; SUPPLEMENTED FEATURES'
// derived-constructor ordering).
func (vm *VM) superCall(f *Frame, args []value.Value) (value.Value, error) {
	fnT := f.env.FunctionObject()
	fnObj, ok := fnT.(*object.Object)
	if !ok {
		return value.Undefined, vm.throwKind(errors.KindSyntax, "'super' keyword unexpected here")
	}
	parent, err := fnObj.VTable().GetPrototypeOf(fnObj, vm)
	if err != nil {
		return value.Undefined, vm.normalizeObjectError(err)
	}
	if parent == nil || !parent.IsConstructor() {
		return value.Undefined, vm.throwKind(errors.KindType, "super constructor is not a constructor")
	}
	ntV := f.env.NewTarget()
	nt, _ := asObject(ntV)
	result, err := vm.ConstructValue(value.Object(parent), args, nt)
	if err != nil {
		return value.Undefined, err
	}
	if !f.env.BindThis(result) {
		return value.Undefined, vm.throwKind(errors.KindReference, "super constructor may only be called once")
	}
	if thisObj, ok := asObject(result); ok {
		fd := fnObj.Data().(*FunctionData)
		if err := vm.initializeInstance(fd, thisObj); err != nil {
			return value.Undefined, err
		}
	}
	return result, nil
}

// superProperty reads home.[[Prototype]][key] with `this` as receiver
// (spec.md §4.3 SuperProp).
func (vm *VM) superProperty(f *Frame, this value.Value, key object.PropertyKey) (value.Value, error) {
	homeT, ok := f.env.HomeObject()
	if !ok {
		return value.Undefined, vm.throwKind(errors.KindSyntax, "'super' keyword unexpected here")
	}
	home, ok := homeT.(*object.Object)
	if !ok {
		return value.Undefined, vm.throwKind(errors.KindSyntax, "'super' keyword unexpected here")
	}
	proto, err := home.VTable().GetPrototypeOf(home, vm)
	if err != nil {
		return value.Undefined, vm.normalizeObjectError(err)
	}
	if proto == nil {
		return value.Undefined, nil
	}
	v, err := proto.VTable().Get(proto, vm, key, this)
	return v, vm.normalizeObjectError(err)
}

// resolvePrivate maps a private-name description through the frame's
// Private environment chain to the object-side identity.
func (vm *VM) resolvePrivate(f *Frame, desc string) (*object.PrivateName, error) {
	en, ok := f.env.LookupPrivate(desc)
	if !ok {
		return nil, vm.throwKind(errors.KindSyntax, "private field '#%s' must be declared in an enclosing class", desc)
	}
	return vm.privMap[en], nil
}

// privateNameFor resolves a class element's private-name index at class
// definition time through the same environment chain the methods close
// over.
func (vm *VM) privateNameFor(privEnv *environment.Env, index int32, cb *bytecode.CodeBlock) *object.PrivateName {
	desc := cb.PrivateNames[index]
	if privEnv != nil {
		if en, ok := privEnv.LookupPrivate(desc); ok {
			return vm.privMap[en]
		}
	}
	pn := &object.PrivateName{Description: desc}
	return pn
}

// getPrivate / setPrivate implement the private member access opcodes,
// unwrapping accessor pairs.
func (vm *VM) getPrivate(f *Frame, base value.Value, desc string) (value.Value, error) {
	obj, ok := asObject(base)
	if !ok {
		return value.Undefined, vm.throwKind(errors.KindType, "cannot read private member #%s from a non-object", desc)
	}
	pn, err := vm.resolvePrivate(f, desc)
	if err != nil {
		return value.Undefined, err
	}
	v, ok := obj.GetPrivate(pn)
	if !ok {
		return value.Undefined, vm.throwKind(errors.KindType, "cannot read private member #%s from an object whose class did not declare it", desc)
	}
	if o, ok := asObject(v); ok {
		if pair, ok := o.Data().(*privateAccessorPair); ok {
			if pair.Get.IsUndefined() {
				return value.Undefined, vm.throwKind(errors.KindType, "'#%s' was defined without a getter", desc)
			}
			return vm.Call(pair.Get, base, nil)
		}
	}
	return v, nil
}

func (vm *VM) setPrivate(f *Frame, base value.Value, desc string, v value.Value) error {
	obj, ok := asObject(base)
	if !ok {
		return vm.throwKind(errors.KindType, "cannot write private member #%s to a non-object", desc)
	}
	pn, err := vm.resolvePrivate(f, desc)
	if err != nil {
		return err
	}
	existing, ok := obj.GetPrivate(pn)
	if !ok {
		return vm.throwKind(errors.KindType, "cannot write private member #%s to an object whose class did not declare it", desc)
	}
	if o, ok := asObject(existing); ok {
		if pair, ok := o.Data().(*privateAccessorPair); ok {
			if pair.Set.IsUndefined() {
				return vm.throwKind(errors.KindType, "'#%s' was defined without a setter", desc)
			}
			_, err := vm.Call(pair.Set, base, []value.Value{v})
			return err
		}
	}
	obj.SetPrivate(pn, v)
	return nil
}
