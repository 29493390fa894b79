package utils

import "encoding/json"

// CheckEncodable reports whether v marshals as JSON. NaN and Inf fail.
func CheckEncodable(v interface{}) error {
	_, err := json.Marshal(v)
	return err
}
