package hash

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/hex"
)

// URLHash 为Feed URL生成稳定的短标识(12位十六进制)。
// 不做任何URL归一化:末尾斜杠、查询参数不同则哈希不同。
func URLHash(url string) string {
	sum := sha256.Sum256([]byte(url))
	return hex.EncodeToString(sum[:])[:12]
}

// ArticleHash 文章身份哈希:link|title|pubDate 的128位摘要(32位十六进制)。
// 缺失字段按空字符串参与计算。仅作身份键,不承担安全边界。
func ArticleHash(link, title, pubDate string) string {
	sum := md5.Sum([]byte(link + "|" + title + "|" + pubDate))
	return hex.EncodeToString(sum[:])
}
