package encoding

import jsoniter "github.com/json-iterator/go"

// JSON is the codec for every cache payload and wire message.
var JSON = jsoniter.ConfigCompatibleWithStandardLibrary
