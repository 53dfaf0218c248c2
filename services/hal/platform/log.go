package platform

import "bme280-go/x/logx"

var lg = logx.New("platform")
