package crypt

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
)

// EncryptPassword 用服务端下发的十六进制公钥加密密码，模拟登录页上的JS加密。
// 输出定长密文（长度为模数的字节数）。
func EncryptPassword(password, modulusHex, exponentHex string) ([]byte, error) {
	n, ok := new(big.Int).SetString(modulusHex, 16)
	if !ok {
		return nil, fmt.Errorf("invalid modulus hex: %q", modulusHex)
	}
	e, ok := new(big.Int).SetString(exponentHex, 16)
	if !ok {
		return nil, fmt.Errorf("invalid exponent hex: %q", exponentHex)
	}

	// 密码字节按大端序解释为大整数，c = m^e mod n
	m := new(big.Int).SetBytes([]byte(password))
	c := new(big.Int).Exp(m, e, n)

	keyLength := (len(modulusHex) + 1) / 2

	result := c.Bytes()
	if len(result) > keyLength {
		result = result[len(result)-keyLength:]
	} else if len(result) < keyLength {
		padded := make([]byte, keyLength)
		copy(padded[keyLength-len(result):], result)
		result = padded
	}

	return result, nil
}

// EncryptPasswordHex 返回服务端校验所接受的形式：小写十六进制，去掉前导零。
func EncryptPasswordHex(password, modulusHex, exponentHex string) (string, error) {
	cipher, err := EncryptPassword(password, modulusHex, exponentHex)
	if err != nil {
		return "", err
	}
	return strings.TrimLeft(hex.EncodeToString(cipher), "0"), nil
}
