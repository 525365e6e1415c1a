/* Copyright 2018-2019 Comcast Cable Communications Management, LLC
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

// Package core provides the definitions that the rest of the morph
// engine shares.
//
// The primary type is Morph: a declarative bundle of named partial
// visualization specs (States), named reactive values (Signals), and
// animated paths between states (Transitions).  A Morph should be
// Compiled before use, and Compile reports the specification errors
// (BadMorph, UnknownState, DuplicateTransition) that cause a morph to
// be skipped at load time.
//
// A running visualization is described by a VisSpec, which is just
// canonical JSON: map[string]interface{}, []interface{}, float64,
// string, bool, and nil.  Canonicalize gets arbitrary data into that
// form.
//
// Signals carry Values, which are a small tagged union (Bool,
// Number, Vector3, Quaternion, String, ObjectRef).  Of converts
// document data into a Value, and Value.Native goes the other way.
// Anything that isn't representable is rejected with an
// UnconvertibleValue.
//
// Expressions (in derived signals and in state patterns) are
// evaluated by an Evaluator.  See the interpreters/ packages.
package core
