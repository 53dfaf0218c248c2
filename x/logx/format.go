package logx

import "strconv"

// sprintf understands %v, %s, %d, %q and %x, which is all the services use.
func sprintf(format string, args []any) string {
	out := make([]byte, 0, len(format)+16)
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' || i+1 == len(format) {
			out = append(out, c)
			continue
		}
		i++
		verb := format[i]
		if verb == '%' {
			out = append(out, '%')
			continue
		}
		if len(args) == 0 {
			out = append(out, "%!"...)
			out = append(out, verb)
			continue
		}
		out = append(out, render(args[0], verb)...)
		args = args[1:]
	}
	return string(out)
}

func render(v any, verb byte) string {
	base := 10
	if verb == 'x' {
		base = 16
	}
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case error:
		s = x.Error()
	case interface{ String() string }:
		s = x.String()
	case bool:
		s = strconv.FormatBool(x)
	case int:
		s = strconv.FormatInt(int64(x), base)
	case int32:
		s = strconv.FormatInt(int64(x), base)
	case int64:
		s = strconv.FormatInt(x, base)
	case uint8:
		s = strconv.FormatUint(uint64(x), base)
	case uint16:
		s = strconv.FormatUint(uint64(x), base)
	case uint32:
		s = strconv.FormatUint(uint64(x), base)
	case uint64:
		s = strconv.FormatUint(x, base)
	default:
		s = "?"
	}
	if verb == 'q' {
		return strconv.Quote(s)
	}
	return s
}
