package registry

import (
	"github.com/dukex/flowforge/pkg/nodes/ai"
	"github.com/dukex/flowforge/pkg/nodes/conditional"
	"github.com/dukex/flowforge/pkg/nodes/gmail"
	"github.com/dukex/flowforge/pkg/nodes/httprequest"
	"github.com/dukex/flowforge/pkg/nodes/ragqa"
	"github.com/dukex/flowforge/pkg/nodes/slack"
	"github.com/dukex/flowforge/pkg/nodes/trigger"
)

// RegisterDefaultNodes registers all built-in node factories with the registry.
func (r *Registry) RegisterDefaultNodes() {
	r.RegisterNode(trigger.NewNodeFactory())
	r.RegisterNode(trigger.NewSlackNodeFactory())
	r.RegisterNode(ai.NewNodeFactory())
	r.RegisterNode(httprequest.NewNodeFactory())
	r.RegisterNode(ragqa.NewNodeFactory())
	r.RegisterNode(gmail.NewNodeFactory())
	r.RegisterNode(slack.NewNodeFactory())
	r.RegisterNode(conditional.NewNodeFactory())
}
