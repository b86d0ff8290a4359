package booking

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/clinic-scheduling-platform/internal/schedule"
)

// Repository defines the interface for booking storage. Implementations must
// make ApproveRequest atomic: the request transition and the appointment
// insert either both commit or neither does.
type Repository interface {
	CreateAppointment(ctx context.Context, appt *schedule.Appointment) error
	GetAppointment(ctx context.Context, id uuid.UUID) (*schedule.Appointment, error)
	UpdateAppointment(ctx context.Context, appt *schedule.Appointment) error
	// ListDoctorAppointments returns the doctor's appointments whose start
	// falls in [from, to), any status.
	ListDoctorAppointments(ctx context.Context, doctorID uuid.UUID, from, to time.Time) ([]schedule.Appointment, error)

	CreateTimeBlock(ctx context.Context, block *schedule.TimeBlock) error
	GetTimeBlock(ctx context.Context, id uuid.UUID) (*schedule.TimeBlock, error)
	UpdateTimeBlock(ctx context.Context, block *schedule.TimeBlock) error
	// ListDoctorTimeBlocks returns every block owned by the doctor, active or
	// not; the conflict checker filters and expands them.
	ListDoctorTimeBlocks(ctx context.Context, doctorID uuid.UUID) ([]schedule.TimeBlock, error)

	CreateRequest(ctx context.Context, req *schedule.AppointmentRequest) error
	GetRequest(ctx context.Context, id uuid.UUID) (*schedule.AppointmentRequest, error)
	UpdateRequest(ctx context.Context, req *schedule.AppointmentRequest) error
	// ApproveRequest transitions the request to approved and inserts the
	// appointment in one atomic unit.
	ApproveRequest(ctx context.Context, req *schedule.AppointmentRequest, appt *schedule.Appointment) error
}

// InMemoryRepository is a Repository backed by process memory, used in tests
// and local development.
type InMemoryRepository struct {
	mu           sync.RWMutex
	appointments map[uuid.UUID]*schedule.Appointment
	blocks       map[uuid.UUID]*schedule.TimeBlock
	requests     map[uuid.UUID]*schedule.AppointmentRequest
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		appointments: make(map[uuid.UUID]*schedule.Appointment),
		blocks:       make(map[uuid.UUID]*schedule.TimeBlock),
		requests:     make(map[uuid.UUID]*schedule.AppointmentRequest),
	}
}

func (r *InMemoryRepository) CreateAppointment(_ context.Context, appt *schedule.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *appt
	r.appointments[appt.ID] = &cp
	return nil
}

func (r *InMemoryRepository) GetAppointment(_ context.Context, id uuid.UUID) (*schedule.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	appt, ok := r.appointments[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *appt
	return &cp, nil
}

func (r *InMemoryRepository) UpdateAppointment(_ context.Context, appt *schedule.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.appointments[appt.ID]; !ok {
		return ErrAppointmentNotFound
	}
	cp := *appt
	r.appointments[appt.ID] = &cp
	return nil
}

func (r *InMemoryRepository) ListDoctorAppointments(_ context.Context, doctorID uuid.UUID, from, to time.Time) ([]schedule.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []schedule.Appointment
	for _, appt := range r.appointments {
		if appt.DoctorID != doctorID {
			continue
		}
		if appt.StartsAt.Before(from) || !appt.StartsAt.Before(to) {
			continue
		}
		out = append(out, *appt)
	}
	return out, nil
}

func (r *InMemoryRepository) CreateTimeBlock(_ context.Context, block *schedule.TimeBlock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *block
	r.blocks[block.ID] = &cp
	return nil
}

func (r *InMemoryRepository) GetTimeBlock(_ context.Context, id uuid.UUID) (*schedule.TimeBlock, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	block, ok := r.blocks[id]
	if !ok {
		return nil, ErrTimeBlockNotFound
	}
	cp := *block
	return &cp, nil
}

func (r *InMemoryRepository) UpdateTimeBlock(_ context.Context, block *schedule.TimeBlock) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.blocks[block.ID]; !ok {
		return ErrTimeBlockNotFound
	}
	cp := *block
	r.blocks[block.ID] = &cp
	return nil
}

func (r *InMemoryRepository) ListDoctorTimeBlocks(_ context.Context, doctorID uuid.UUID) ([]schedule.TimeBlock, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []schedule.TimeBlock
	for _, block := range r.blocks {
		if block.DoctorID == doctorID {
			out = append(out, *block)
		}
	}
	return out, nil
}

func (r *InMemoryRepository) CreateRequest(_ context.Context, req *schedule.AppointmentRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *req
	r.requests[req.ID] = &cp
	return nil
}

func (r *InMemoryRepository) GetRequest(_ context.Context, id uuid.UUID) (*schedule.AppointmentRequest, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	req, ok := r.requests[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	cp := *req
	return &cp, nil
}

func (r *InMemoryRepository) UpdateRequest(_ context.Context, req *schedule.AppointmentRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.requests[req.ID]; !ok {
		return ErrRequestNotFound
	}
	cp := *req
	r.requests[req.ID] = &cp
	return nil
}

func (r *InMemoryRepository) ApproveRequest(_ context.Context, req *schedule.AppointmentRequest, appt *schedule.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.requests[req.ID]; !ok {
		return ErrRequestNotFound
	}
	reqCp := *req
	apptCp := *appt
	r.requests[req.ID] = &reqCp
	r.appointments[appt.ID] = &apptCp
	return nil
}
