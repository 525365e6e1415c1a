package sio

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os/exec"
	"regexp"
)

// JS renders its argument as JSON or as '%#v'.
func JS(x interface{}) string {
	if x == nil {
		return "null"
	}
	js, err := json.Marshal(&x)
	if err != nil {
		return fmt.Sprintf("%#v", x)
	}
	return string(js)
}

// JSON renders its argument as pretty JSON or as '%#v".
func JSON(x interface{}) string {
	if x == nil {
		return "null"
	}
	js, err := json.MarshalIndent(&x, "", "  ")
	if err != nil {
		return fmt.Sprintf("%#v", x)
	}
	return string(js)
}

// ShortLen is the most JShort will show (before the "...").
var ShortLen = 70

// JShort renders its argument as JS() but truncated.  Vis specs can
// carry inline data, which makes for long log lines.
func JShort(x interface{}) string {
	js := JS(x)
	if ShortLen < len(js) {
		js = js[0:ShortLen] + "..."
	}
	return js
}

var shell = regexp.MustCompile(`<<(.*?)>>`)

// ShellExpand expands shell commands delimited by '<<' and '>>'.  Use
// at your own risk, of course!
//
// Handy for ops like {"op":"signal","signal":"now","value":<<date +%s>>}.
func ShellExpand(msg string) (string, error) {
	literals := shell.Split(msg, -1)
	ss := shell.FindAllStringSubmatch(msg, -1)
	acc := literals[0]
	for i, s := range ss {
		sh := s[1]
		cmd := exec.Command("bash", "-c", sh)
		var out bytes.Buffer
		cmd.Stdout = &out
		if err := cmd.Run(); err != nil {
			return "", fmt.Errorf("shell error %s on %s", err, sh)
		}
		acc += out.String() + literals[i+1]
	}
	return acc, nil
}
