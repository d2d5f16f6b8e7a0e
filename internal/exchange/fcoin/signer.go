package fcoin

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"sort"
	"strconv"
	"strings"
)

// Signer 生成 FCoin v2 接口签名：
// base64(HMAC-SHA1(secret, base64(METHOD + URL + TIMESTAMP + BODY)))。
type Signer struct {
	key    string
	secret []byte
}

// NewSigner 创建签名器。
func NewSigner(key, secret string) *Signer {
	return &Signer{key: key, secret: []byte(secret)}
}

// Sign 对请求签名。url 为包含查询串的完整地址，body 为 POST 参数。
func (s *Signer) Sign(method, url string, timestamp int64, body map[string]string) string {
	payload := strings.ToUpper(method) + url + strconv.FormatInt(timestamp, 10) + encodeParams(body)
	inner := base64.StdEncoding.EncodeToString([]byte(payload))

	mac := hmac.New(sha1.New, s.secret)
	mac.Write([]byte(inner))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// encodeParams 以键名升序拼接 k=v&k=v，值不做转义。
func encodeParams(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('&')
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(params[k])
	}
	return b.String()
}
