//                           _       _
// __      _____  __ ___   ___  __ _| |_ ___
// \ \ /\ / / _ \/ _` \ \ / / |/ _` | __/ _ \
//  \ V  V /  __/ (_| |\ V /| | (_| | ||  __/
//   \_/\_/ \___|\__,_| \_/ |_|\__,_|\__\___|
//
//  Copyright © 2016 - 2026 Weaviate B.V. All rights reserved.
//
//  CONTACT: hello@weaviate.io
//

package errorcompounder

import (
	"strings"

	"github.com/pkg/errors"
)

// ErrorCompounder collects the failures of a best-effort sequence, e.g. an
// ordered teardown that must attempt every step regardless of earlier errors.
type ErrorCompounder struct {
	errors []error
}

func New() *ErrorCompounder {
	return &ErrorCompounder{}
}

func (ec *ErrorCompounder) Add(err error) {
	if err != nil {
		ec.errors = append(ec.errors, err)
	}
}

func (ec *ErrorCompounder) AddWrapf(err error, format string, a ...any) {
	if err != nil {
		ec.errors = append(ec.errors, errors.Wrapf(err, format, a...))
	}
}

func (ec *ErrorCompounder) Empty() bool {
	return len(ec.errors) == 0
}

func (ec *ErrorCompounder) Len() int {
	return len(ec.errors)
}

// First returns the first error collected, which is the one callers should
// surface after the sequence completed.
func (ec *ErrorCompounder) First() error {
	if len(ec.errors) == 0 {
		return nil
	}
	return ec.errors[0]
}

// ToError flattens everything collected into a single error, or nil.
func (ec *ErrorCompounder) ToError() error {
	if len(ec.errors) == 0 {
		return nil
	}

	var b strings.Builder
	for i, err := range ec.errors {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(err.Error())
	}
	return errors.New(b.String())
}
