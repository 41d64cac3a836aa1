package facility

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentedRegistry wraps Registry operations in spans and metrics.
type InstrumentedRegistry struct {
	*Registry
	telemetry *TelemetryProvider

	enterOps          metric.Int64Counter
	leaveOps          metric.Int64Counter
	reservationOps    metric.Int64Counter
	occupancyGauge    metric.Int64UpDownCounter
	feeCharged        metric.Int64Histogram
	operationDuration metric.Float64Histogram
	totalSpotsGauge   metric.Int64UpDownCounter
}

func NewInstrumentedRegistry(registry *Registry, telemetry *TelemetryProvider) (*InstrumentedRegistry, error) {
	meter := telemetry.Meter()

	enterOps, err := meter.Int64Counter("facility_enter_operations_total",
		metric.WithDescription("Total number of vehicle entry operations"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	leaveOps, err := meter.Int64Counter("facility_leave_operations_total",
		metric.WithDescription("Total number of vehicle departure operations"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	reservationOps, err := meter.Int64Counter("facility_reservation_operations_total",
		metric.WithDescription("Total number of reservation operations"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	occupancyGauge, err := meter.Int64UpDownCounter("facility_occupancy",
		metric.WithDescription("Current number of occupied parking spots"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	feeCharged, err := meter.Int64Histogram("facility_fee_charged",
		metric.WithDescription("Fees computed on departure"),
		metric.WithUnit("{won}"))
	if err != nil {
		return nil, err
	}

	operationDuration, err := meter.Float64Histogram("facility_operation_duration_seconds",
		metric.WithDescription("Duration of facility operations"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	totalSpotsGauge, err := meter.Int64UpDownCounter("facility_total_spots",
		metric.WithDescription("Total number of parking spots"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	ir := &InstrumentedRegistry{
		Registry:          registry,
		telemetry:         telemetry,
		enterOps:          enterOps,
		leaveOps:          leaveOps,
		reservationOps:    reservationOps,
		occupancyGauge:    occupancyGauge,
		feeCharged:        feeCharged,
		operationDuration: operationDuration,
		totalSpotsGauge:   totalSpotsGauge,
	}

	ctx := context.Background()
	totalSpotsGauge.Add(ctx, int64(TotalSpots))
	// Sessions restored from the state file count toward occupancy.
	occupancyGauge.Add(ctx, int64(registry.ActiveSessions()))

	return ir, nil
}

func (ir *InstrumentedRegistry) Enter(ctx context.Context, vehicleID string, floor, row, col int, class VehicleClass) (*Session, error) {
	tracer := ir.telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "facility.enter",
		trace.WithAttributes(
			attribute.String("vehicle.id", vehicleID),
			attribute.String("vehicle.class", string(class)),
			attribute.Int("spot.floor", floor),
			attribute.Int("spot.row", row),
			attribute.Int("spot.col", col),
		))
	defer span.End()

	start := time.Now()

	span.AddEvent("allocating_spot")

	sess, err := ir.Registry.Enter(vehicleID, floor, row, col, class)

	duration := time.Since(start).Seconds()

	labels := []attribute.KeyValue{
		attribute.String("operation", "enter"),
		attribute.String("vehicle_class", string(class)),
	}

	switch {
	case err != nil && sess == nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		labels = append(labels, attribute.String("status", "rejected"))
	case err != nil:
		// Session was created but the save failed.
		span.RecordError(err)
		labels = append(labels, attribute.String("status", "unsaved"))
		ir.occupancyGauge.Add(ctx, 1)
	default:
		labels = append(labels, attribute.String("status", "success"))
		span.SetAttributes(attribute.Int("spot.position_num", sess.PositionNum))
		span.AddEvent("spot_allocated", trace.WithAttributes(
			attribute.Int("position_num", sess.PositionNum),
		))
		ir.occupancyGauge.Add(ctx, 1)
	}

	ir.enterOps.Add(ctx, 1, metric.WithAttributes(labels...))
	ir.operationDuration.Record(ctx, duration, metric.WithAttributes(labels...))

	return sess, err
}

func (ir *InstrumentedRegistry) Leave(ctx context.Context, vehicleID string) (*Receipt, error) {
	tracer := ir.telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "facility.leave",
		trace.WithAttributes(
			attribute.String("vehicle.id", vehicleID),
		))
	defer span.End()

	start := time.Now()

	span.AddEvent("releasing_spot")

	receipt, err := ir.Registry.Leave(vehicleID)

	duration := time.Since(start).Seconds()

	labels := []attribute.KeyValue{
		attribute.String("operation", "leave"),
	}

	switch {
	case err != nil && receipt == nil:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		labels = append(labels, attribute.String("status", "rejected"))
	case err != nil:
		span.RecordError(err)
		labels = append(labels, attribute.String("status", "unsaved"))
	default:
		labels = append(labels, attribute.String("status", "success"))
	}

	if receipt != nil {
		span.SetAttributes(
			attribute.Int("fee", receipt.Fee),
			attribute.String("vehicle_class", string(receipt.Session.Class)),
		)
		span.AddEvent("spot_released")
		ir.occupancyGauge.Add(ctx, -1)
		ir.feeCharged.Record(ctx, int64(receipt.Fee), metric.WithAttributes(
			attribute.String("vehicle_class", string(receipt.Session.Class)),
			attribute.Bool("walk_in", receipt.Session.WalkIn),
		))
	}

	ir.leaveOps.Add(ctx, 1, metric.WithAttributes(labels...))
	ir.operationDuration.Record(ctx, duration, metric.WithAttributes(labels...))

	return receipt, err
}

func (ir *InstrumentedRegistry) GrantSubscription(ctx context.Context, vehicleID string, planDays int) error {
	tracer := ir.telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "facility.grant_subscription",
		trace.WithAttributes(
			attribute.String("vehicle.id", vehicleID),
			attribute.Int("plan.days", planDays),
		))
	defer span.End()

	start := time.Now()

	err := ir.Registry.GrantSubscription(vehicleID, planDays)

	duration := time.Since(start).Seconds()

	labels := []attribute.KeyValue{
		attribute.String("operation", "grant_subscription"),
	}

	if err != nil && !errors.Is(err, ErrSaveFailed) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		labels = append(labels, attribute.String("status", "rejected"))
	} else {
		labels = append(labels, attribute.String("status", "success"))
		span.AddEvent("subscription_granted")
	}

	ir.operationDuration.Record(ctx, duration, metric.WithAttributes(labels...))

	return err
}

func (ir *InstrumentedRegistry) Reserve(ctx context.Context, vehicleID string, enterAt, leaveAt time.Time) error {
	tracer := ir.telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "facility.reserve",
		trace.WithAttributes(
			attribute.String("vehicle.id", vehicleID),
			attribute.String("reservation.enter_at", enterAt.Format(TimeLayout)),
			attribute.String("reservation.leave_at", leaveAt.Format(TimeLayout)),
		))
	defer span.End()

	start := time.Now()

	err := ir.Registry.Reserve(vehicleID, enterAt, leaveAt)

	duration := time.Since(start).Seconds()

	labels := []attribute.KeyValue{
		attribute.String("operation", "reserve"),
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		labels = append(labels, attribute.String("status", "rejected"))
	} else {
		labels = append(labels, attribute.String("status", "success"))
		span.AddEvent("reservation_recorded")
	}

	ir.reservationOps.Add(ctx, 1, metric.WithAttributes(labels...))
	ir.operationDuration.Record(ctx, duration, metric.WithAttributes(labels...))

	return err
}

func (ir *InstrumentedRegistry) QueryFloor(ctx context.Context, floor int) (FloorStatus, error) {
	tracer := ir.telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "facility.query_floor",
		trace.WithAttributes(attribute.Int("spot.floor", floor)))
	defer span.End()

	start := time.Now()

	status, err := ir.Registry.QueryFloor(floor)

	duration := time.Since(start).Seconds()

	labels := []attribute.KeyValue{
		attribute.String("operation", "query_floor"),
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		labels = append(labels, attribute.String("status", "rejected"))
	} else {
		span.SetAttributes(attribute.Int("floor.available", status.Available))
		labels = append(labels, attribute.String("status", "success"))
	}

	ir.operationDuration.Record(ctx, duration, metric.WithAttributes(labels...))

	return status, err
}

func (ir *InstrumentedRegistry) QueryAll(ctx context.Context) []FloorStatus {
	tracer := ir.telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "facility.query_all")
	defer span.End()

	start := time.Now()

	statuses := ir.Registry.QueryAll()

	duration := time.Since(start).Seconds()

	available := 0
	for _, s := range statuses {
		available += s.Available
	}
	span.SetAttributes(
		attribute.Int("facility.available", available),
		attribute.Int("facility.capacity", TotalSpots),
	)

	ir.operationDuration.Record(ctx, duration, metric.WithAttributes(
		attribute.String("operation", "query_all"),
		attribute.String("status", "success"),
	))

	return statuses
}
