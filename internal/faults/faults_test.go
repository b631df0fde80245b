/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package faults

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessages(t *testing.T) {
	assert.Equal(t,
		`resource pool "Prod" not found on server vcenter.test`,
		NewNotFound("resource pool", "Prod", "vcenter.test").Error())

	assert.Equal(t,
		`guest VM "web-01" is powered on, refusing to apply: number of CPUs changed from 2 to 4; memory changed from 4096 MB to 8192 MB`,
		(&UnsafeChangeError{
			VM: "web-01",
			Blocked: []string{
				"number of CPUs changed from 2 to 4",
				"memory changed from 4096 MB to 8192 MB",
			},
		}).Error())

	assert.Equal(t,
		"an object with the name web-01 already exists",
		(&TaskFailureError{Message: "an object with the name web-01 already exists"}).Error())

	assert.Equal(t,
		"failed to connect to vCenter server at vcenter.test with user admin",
		(&ConnectionError{Server: "vcenter.test", User: "admin"}).Error())
}

func TestClassifiersSeeThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("run failed: %w", NewNotFound("cluster", "DC0_C0", "vcenter.test"))
	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsNotFound(errors.New("other")))
	assert.False(t, IsNotFound(nil))

	assert.True(t, IsUnsafeChange(fmt.Errorf("x: %w", &UnsafeChangeError{VM: "web-01"})))
	assert.True(t, IsTaskFailure(fmt.Errorf("x: %w", &TaskFailureError{Message: "boom"})))
	assert.True(t, IsConnection(fmt.Errorf("x: %w", &ConnectionError{Server: "s", User: "u"})))
}

func TestUnwrap(t *testing.T) {
	cause := errors.New("401 unauthorized")
	err := &ConnectionError{Server: "vcenter.test", User: "admin", Cause: cause}
	assert.ErrorIs(t, err, cause)

	taskCause := errors.New("backend fault")
	taskErr := &TaskFailureError{Message: "an error occurred while waiting for the task to complete", Cause: taskCause}
	assert.ErrorIs(t, taskErr, taskCause)
}
