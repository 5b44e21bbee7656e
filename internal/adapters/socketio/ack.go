package socketio

import (
	"encoding/json"
	"reflect"
)

// ackFunc delivers a direct reply through the client's acknowledgement callback.
type ackFunc func(reply any)

// extractAck splits a trailing acknowledgement callback off the event args.
func extractAck(datas []any) (ackFunc, []any) {
	if len(datas) == 0 {
		return nil, datas
	}
	ack := wrapAck(datas[len(datas)-1])
	if ack == nil {
		return nil, datas
	}
	return ack, datas[:len(datas)-1]
}

func wrapAck(candidate any) ackFunc {
	if candidate == nil {
		return nil
	}
	if fn, ok := candidate.(func([]any, error)); ok {
		return func(reply any) { fn([]any{reply}, nil) }
	}
	value := reflect.ValueOf(candidate)
	if value.Kind() != reflect.Func {
		return nil
	}
	typ := value.Type()
	return func(reply any) {
		args := make([]reflect.Value, typ.NumIn())
		for i := range args {
			in := typ.In(i)
			switch {
			case i == 0 && in.Kind() == reflect.Slice && in.Elem().Kind() == reflect.Interface:
				args[i] = reflect.ValueOf([]any{reply})
			case i == 0 && reflect.TypeOf(reply) != nil && reflect.TypeOf(reply).AssignableTo(in):
				args[i] = reflect.ValueOf(reply)
			default:
				args[i] = reflect.Zero(in)
			}
		}
		value.Call(args)
	}
}

// aliases maps request fields sent by the original web client to the names
// the handler validates.
var aliases = map[string]string{
	"developerName": "displayName",
	"code":          "content",
	"developerId":   "participantId",
}

// payload re-encodes the first event argument as JSON for the handler.
func payload(args []any) ([]byte, error) {
	if len(args) == 0 || args[0] == nil {
		return nil, nil
	}
	if m, ok := args[0].(map[string]any); ok {
		out := make(map[string]any, len(m))
		for k, v := range m {
			if alias, ok := aliases[k]; ok {
				if _, set := m[alias]; !set {
					k = alias
				}
			}
			out[k] = v
		}
		return json.Marshal(out)
	}
	return json.Marshal(args[0])
}
