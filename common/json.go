package common

import jsoniter "github.com/json-iterator/go"

// 与标准库行为一致的 jsoniter 配置
var json = jsoniter.ConfigCompatibleWithStandardLibrary

func JsonMarshalToString(v interface{}) (string, error) {
	return json.MarshalToString(v)
}

func JsonUnmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}
