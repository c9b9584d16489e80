package safelink

import (
	"fmt"
	"math"
	"reflect"

	"github.com/fxamacker/cbor/v2"
)

// ペイロードのキー。
const (
	payloadDataKey      = "d"
	payloadTimestampKey = "ts"
)

// 復号時の上限。署名時も同じ上限を課し、検証できないリンクを発行しない。
// 外側の {"d", "ts"} マップが1段を使うため、データ自体は maxNestedLevels-1 段まで。
const (
	maxNestedLevels     = 32
	maxContainerEntries = 131072
)

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	// RFC 8949 Core Deterministic Encoding（マップキーは整列済み）
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic(err)
	}

	decMode, err = cbor.DecOptions{
		DupMapKey:       cbor.DupMapKeyEnforcedAPF,
		IndefLength:     cbor.IndefLengthForbidden,
		TagsMd:          cbor.TagsForbidden,
		MaxNestedLevels:  maxNestedLevels,
		MaxArrayElements: maxContainerEntries,
		MaxMapPairs:      maxContainerEntries,
		DefaultMapType:   reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

// Encode はデータとタイムスタンプを {"d": data, "ts": timestamp} のCBORマップに直列化する。
// Decode の上限を超えるデータは ErrInvalidArgument を返す。
func Encode(data Value, timestamp int64) ([]byte, error) {
	if err := checkLimits(data, 1); err != nil {
		return nil, err
	}

	b, err := encMode.Marshal(map[string]any{
		payloadDataKey:      data.Interface(),
		payloadTimestampKey: timestamp,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}
	return b, nil
}

// checkLimits は v が入れ子の深さと要素数の上限に収まるか調べる。depth は v の親コンテナまでの段数。
func checkLimits(v Value, depth int) error {
	switch v.kind {
	case KindList:
		if depth+1 > maxNestedLevels {
			return invalidArgument("data is nested deeper than %d levels", maxNestedLevels-1)
		}
		if len(v.list) > maxContainerEntries {
			return invalidArgument("list has %d items, limit is %d", len(v.list), maxContainerEntries)
		}
		for _, item := range v.list {
			if err := checkLimits(item, depth+1); err != nil {
				return err
			}
		}
	case KindMap:
		if depth+1 > maxNestedLevels {
			return invalidArgument("data is nested deeper than %d levels", maxNestedLevels-1)
		}
		if len(v.m) > maxContainerEntries {
			return invalidArgument("map has %d keys, limit is %d", len(v.m), maxContainerEntries)
		}
		for _, item := range v.m {
			if err := checkLimits(item, depth+1); err != nil {
				return err
			}
		}
	}
	return nil
}

// Decode は Encode の出力を復元する。キーは d と ts のみ、ts はint64に収まる整数でなければならない。
func Decode(b []byte) (Value, int64, error) {
	var raw map[string]any
	if err := decMode.Unmarshal(b, &raw); err != nil {
		return Value{}, 0, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if len(raw) != 2 {
		return Value{}, 0, fmt.Errorf("%w: unexpected payload shape", ErrDecode)
	}

	rawData, ok := raw[payloadDataKey]
	if !ok {
		return Value{}, 0, fmt.Errorf("%w: missing data", ErrDecode)
	}
	rawTS, ok := raw[payloadTimestampKey]
	if !ok {
		return Value{}, 0, fmt.Errorf("%w: missing timestamp", ErrDecode)
	}

	ts, ok := toInt64(rawTS)
	if !ok {
		return Value{}, 0, fmt.Errorf("%w: timestamp is not an integer", ErrDecode)
	}

	data, err := fromCBOR(rawData)
	if err != nil {
		return Value{}, 0, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return data, ts, nil
}

func toInt64(x any) (int64, bool) {
	switch n := x.(type) {
	case int64:
		return n, true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	}
	return 0, false
}

// fromCBOR はCBORデコーダの出力を Value に変換する。スキーマ外の型（バイト列、big.Intなど）は拒否する。
func fromCBOR(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case int64, uint64:
		i, ok := toInt64(t)
		if !ok {
			return Value{}, fmt.Errorf("integer overflows int64")
		}
		return Int(i), nil
	case float64:
		return Float(t), nil
	case string:
		return String(t), nil
	case []any:
		items := make([]Value, len(t))
		for i, e := range t {
			v, err := fromCBOR(e)
			if err != nil {
				return Value{}, err
			}
			items[i] = v
		}
		return Value{kind: KindList, list: items}, nil
	case map[string]any:
		m := make(map[string]Value, len(t))
		for k, e := range t {
			v, err := fromCBOR(e)
			if err != nil {
				return Value{}, err
			}
			m[k] = v
		}
		return Value{kind: KindMap, m: m}, nil
	}
	return Value{}, fmt.Errorf("unsupported CBOR type %T", x)
}
