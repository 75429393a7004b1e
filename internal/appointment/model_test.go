package appointment

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppointmentJSONShape(t *testing.T) {
	date, err := ParseDate("2025-03-14")
	require.NoError(t, err)

	a := Appointment{
		ID:     uuid.New(),
		UserID: uuid.New(),
		NurseSnapshot: NurseSnapshot{
			NurseID:   uuid.New(),
			NurseName: "Meera Nair",
		},
		ServiceType:     ServiceHomeVisit,
		ServicePrice:    1200,
		AppointmentDate: date,
		AppointmentTime: "4:00 PM",
		Status:          StatusPending,
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}

	raw, err := json.Marshal(a)
	require.NoError(t, err)

	var m map[string]any
	require.NoError(t, json.Unmarshal(raw, &m))

	for _, key := range []string{
		"userId", "nurseId", "nurseName", "nurseImage", "specialization",
		"serviceType", "servicePrice", "appointmentDate", "appointmentTime",
		"paymentMethod", "insuranceCoverage", "status", "createdAt", "updatedAt",
	} {
		assert.Contains(t, m, key)
	}
	assert.NotContains(t, m, "rating")
	assert.NotContains(t, m, "ratedAt")
	assert.NotContains(t, m, "NurseSnapshot")

	assert.Equal(t, "2025-03-14", m["appointmentDate"])
	assert.Equal(t, "Home visit", m["serviceType"])

	var back Appointment
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, "2025-03-14", back.AppointmentDate.String())
	assert.Equal(t, a.NurseID, back.NurseID)
}

func TestServicePrices(t *testing.T) {
	prices := ServicePrices()
	assert.Equal(t, map[ServiceType]int{
		ServiceConsultation: 500,
		ServiceHomeVisit:    1200,
		ServiceEmergency:    2000,
	}, prices)

	prices[ServiceEmergency] = 1
	p, ok := ServiceEmergency.Price()
	assert.True(t, ok)
	assert.Equal(t, 2000, p)

	_, ok = ServiceType("Massage").Price()
	assert.False(t, ok)
}
