package hal

import (
	"encoding/json"

	"bme280-go/types"
)

// HALConfig and friends are the shapes published on "config/hal".
type (
	HALConfig = types.HALConfig
	BusCfg    = types.BusCfg
	DevCfg    = types.Device
)

// decodeJSON accepts raw JSON ([]byte or string) or an already decoded value
// (map, struct) and decodes it into dst.
func decodeJSON[T any](src any, dst *T) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dst)
	case string:
		return json.Unmarshal([]byte(v), dst)
	case *T:
		*dst = *v
		return nil
	case T:
		*dst = v
		return nil
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		return json.Unmarshal(b, dst)
	}
}
