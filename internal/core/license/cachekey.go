package license

const (
	// IDKeyPrefix は ID 参照のキャッシュキー接頭辞です。
	IDKeyPrefix = "license"
	// NumberKeyPrefix は許可番号参照のキャッシュキー接頭辞です。
	NumberKeyPrefix = "license_num"
)

// IDCacheKey は "license:{id}" を返します。
func IDCacheKey(id string) string {
	return IDKeyPrefix + ":" + id
}

// NumberCacheKey は "license_num:{licenseNumber}" を返します。
func NumberCacheKey(number string) string {
	return NumberKeyPrefix + ":" + number
}
