/* Copyright 2019 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package main

import (
	"flag"

	"github.com/Comcast/morphs/sio"
)

// NewStdCouplings makes stdin/stdout couplings.  With "-state", the
// couplings carry a JSON keyframe store, which replaces the bolt
// database.
func NewStdCouplings(args []string) (*sio.Stdio, *flag.FlagSet) {

	var (
		std        = sio.NewStdio(true)
		fs         = flag.NewFlagSet("std", flag.ExitOnError)
		stateFile  = fs.String("state", "", "JSON keyframe state filename")
		writePerOp = fs.Bool("write-state-msg", false, "write state after each keyframe change")
	)

	fs.BoolVar(&std.EchoInput, "echo", false, "echo input")
	fs.BoolVar(&std.Timestamps, "ts", false, "print timestamps")
	fs.BoolVar(&std.ShellExpand, "sh", false, "shell-expand input")
	fs.BoolVar(&std.PadTags, "pad", false, "pad tags")
	fs.BoolVar(&std.Tags, "tags", true, "tags")

	if args != nil {
		fs.Parse(args)
	}

	if *stateFile != "" {
		std.Store = sio.NewJSONStore(*stateFile)
		std.Store.WritePerSave = *writePerOp
	}

	return std, fs
}
