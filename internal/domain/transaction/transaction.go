package transaction

import "context"

// Manager はトランザクション境界を管理するインターフェース
// ドメイン層がインフラ層（sqlx等）に依存しないようにするための抽象化
//
// fn に渡される ctx にはトランザクションが載っており、
// 同じ ctx を受け取ったストアは同一トランザクション内で動作する。
// fn がエラーを返した場合はロールバックされる。
type Manager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ManagerFunc は関数を Manager として扱うためのアダプタ
type ManagerFunc func(ctx context.Context, fn func(ctx context.Context) error) error

// WithTx は f を呼び出す
func (f ManagerFunc) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return f(ctx, fn)
}

// NoTx はトランザクションを持たないストア向けの Manager
// fn をそのまま実行する
var NoTx Manager = ManagerFunc(func(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
})
