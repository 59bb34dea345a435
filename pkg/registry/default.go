package registry

import (
	"log/slog"

	"github.com/dukex/operion-triggered/pkg/consumers/polling"
	"github.com/dukex/operion-triggered/pkg/consumers/queue"
	"github.com/dukex/operion-triggered/pkg/consumers/remote"
	"github.com/dukex/operion-triggered/pkg/consumers/schedule"
	"github.com/dukex/operion-triggered/pkg/consumers/subscriber"
	"github.com/dukex/operion-triggered/pkg/producers/logging"
	"github.com/dukex/operion-triggered/pkg/producers/publisher"
	queueproducer "github.com/dukex/operion-triggered/pkg/producers/queue"
	"github.com/dukex/operion-triggered/pkg/providers"
	"github.com/dukex/operion-triggered/pkg/services"
)

// NewDefault returns a registry holding every native component.
func NewDefault(log *slog.Logger) *Registry {
	r := NewRegistry(log)

	r.RegisterConsumer(remote.NewFactory())
	r.RegisterConsumer(schedule.NewFactory())
	r.RegisterConsumer(queue.NewFactory())
	r.RegisterConsumer(subscriber.NewFactory())
	r.RegisterConsumer(polling.NewFactory())

	r.RegisterProducer(logging.NewFactory())
	r.RegisterProducer(publisher.NewFactory())
	r.RegisterProducer(queueproducer.NewFactory())

	r.RegisterService(&services.MetadataFactory{})
	r.RegisterService(&services.LogFactory{})
	r.RegisterService(&services.JSONSchemaFactory{})
	r.RegisterService(&services.TemplateFactory{})

	r.RegisterProvider(providers.NewStaticFactory())
	r.RegisterProvider(providers.NewRedisListFactory())

	return r
}
