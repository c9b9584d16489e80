// Package safelink は任意のデータを埋め込んだリダイレクトURLの署名と検証を提供する。
//
// データはタイムスタンプと共にCBORで直列化され、秘密鍵からHKDFで導出した
// AES-256-CBC鍵とHMAC-SHA256鍵で暗号化・認証される。暗号文は s、IVは i という
// クエリパラメータ（パディングなしのURLセーフBase64）として付与される。
//
// 検証側は同じ秘密鍵で s と i を復号し、タイムアウト（既定10秒）を超えた
// リンクを拒否する。検証失敗はすべて ErrVerification に正規化される。
//
// SafeLink は内部で同期を取らない。1回の署名または検証ごとにインスタンスを
// 生成すること。
package safelink
