package signing

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/zeebo/blake3"
)

const (
	privateKeyFile = "ticket-signing-key"
	publicKeyFile  = "ticket-signing-key.pub"
)

// GenerateKeypair はチケット署名用の Ed25519 鍵ペアを生成する
func GenerateKeypair() (ed25519.PublicKey, ed25519.PrivateKey, error) {
	public, private, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, nil, fmt.Errorf("鍵ペアの生成に失敗: %w", err)
	}
	return public, private, nil
}

// SaveKeypair は鍵ペアを dir に保存する（秘密鍵 0600、公開鍵 0644）
func SaveKeypair(dir string, public ed25519.PublicKey, private ed25519.PrivateKey) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return fmt.Errorf("鍵ディレクトリの作成に失敗: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, privateKeyFile), private, 0600); err != nil {
		return fmt.Errorf("秘密鍵の書き込みに失敗: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, publicKeyFile), public, 0644); err != nil {
		return fmt.Errorf("公開鍵の書き込みに失敗: %w", err)
	}
	return nil
}

// LoadKeypair は dir から鍵ペアを読み込む
func LoadKeypair(dir string) (ed25519.PublicKey, ed25519.PrivateKey, error) {
	privateBytes, err := os.ReadFile(filepath.Join(dir, privateKeyFile))
	if err != nil {
		return nil, nil, fmt.Errorf("秘密鍵の読み込みに失敗: %w", err)
	}
	if len(privateBytes) != ed25519.PrivateKeySize {
		return nil, nil, fmt.Errorf("秘密鍵のサイズが不正です: %d bytes", len(privateBytes))
	}
	public, err := LoadPublicKey(filepath.Join(dir, publicKeyFile))
	if err != nil {
		return nil, nil, err
	}
	return public, ed25519.PrivateKey(privateBytes), nil
}

// LoadOrGenerateKeypair は既存の鍵ペアを読み込み、無ければ生成して保存する
// 戻り値の bool は新規生成したかどうか
func LoadOrGenerateKeypair(dir string) (ed25519.PublicKey, ed25519.PrivateKey, bool, error) {
	public, private, err := LoadKeypair(dir)
	if err == nil {
		return public, private, false, nil
	}

	// ファイルがあるのに読めない場合は破損として扱い、上書きしない
	if _, statErr := os.Stat(filepath.Join(dir, privateKeyFile)); statErr == nil {
		return nil, nil, false, err
	}

	public, private, err = GenerateKeypair()
	if err != nil {
		return nil, nil, false, err
	}
	if err := SaveKeypair(dir, public, private); err != nil {
		return nil, nil, false, err
	}
	return public, private, true, nil
}

// LoadPublicKey は公開鍵ファイルを読み込む
func LoadPublicKey(path string) (ed25519.PublicKey, error) {
	publicBytes, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("公開鍵の読み込みに失敗: %w", err)
	}
	if len(publicBytes) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("公開鍵のサイズが不正です: %s (%d bytes)", path, len(publicBytes))
	}
	return ed25519.PublicKey(publicBytes), nil
}

// LoadRetiredPublicKeys は dir 内の *.pub を退役済み公開鍵として読み込む
// dir が空文字なら何も読み込まない
func LoadRetiredPublicKeys(dir string) ([]ed25519.PublicKey, error) {
	if dir == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("退役鍵ディレクトリの読み込みに失敗: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".pub") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	keys := make([]ed25519.PublicKey, 0, len(names))
	for _, name := range names {
		key, err := LoadPublicKey(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// KeyID は公開鍵の BLAKE3 ハッシュ先頭 8 バイトを16進で返す
func KeyID(public ed25519.PublicKey) string {
	sum := blake3.Sum256(public)
	return hex.EncodeToString(sum[:8])
}
