package observability

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
)

func TestZeroValueIsSafe(t *testing.T) {
	var o *Observability
	ctx, span := o.StartSpan(context.Background(), "stage", attribute.String("intent", "people"))
	require.NotNil(t, ctx)
	span.End()
	o.RecordAsk(ctx, "people", "high", time.Second)
	o.Shutdown()
}

func TestNew(t *testing.T) {
	o, err := New("wizkid-test")
	require.NoError(t, err)
	defer o.Shutdown()

	assert.NotNil(t, o.askCounter)
	assert.NotNil(t, o.askDuration)
	o.RecordAsk(context.Background(), "general", "medium", 1500*time.Millisecond)
}
