package signing

import (
	"github.com/fxamacker/cbor/v2"
)

// encMode は Core Deterministic Encoding (RFC 8949 §4.2) の CBOR エンコーダ
// 同じ内容は常に同じバイト列になる
var encMode cbor.EncMode

// decMode は重複キーを拒否する CBOR デコーダ
var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("signing: CBORエンコーダの初期化に失敗: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DupMapKey:   cbor.DupMapKeyEnforcedAPF,
		IndefLength: cbor.IndefLengthForbidden,
	}.DecMode()
	if err != nil {
		panic("signing: CBORデコーダの初期化に失敗: " + err.Error())
	}
}
