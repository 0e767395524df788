package graph

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	"github.com/jan-sahayak/server/internal/agent/graph/conversations"
	"github.com/jan-sahayak/server/internal/agent/graph/nodes"
	"github.com/jan-sahayak/server/internal/agent/graph/pipelines"
	"github.com/jan-sahayak/server/internal/agent/llm"
	"github.com/jan-sahayak/server/internal/agent/model"
	logx "github.com/jan-sahayak/server/pkg/logger"
)

const graphName = "orchestrator"

// GraphConfig holds all configuration needed to build the graph
type GraphConfig struct {
	Router         llm.Gateway
	Specialists    map[model.Route]pipelines.Runner
	Conversation   *conversations.Machine
	RouterMaxTurns int
}

// GraphBuilder handles the construction of the orchestrator graph
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[model.TurnInput, *model.TurnOutput]
}

var specialistNodes = []struct {
	route model.Route
	node  string
}{
	{model.RoutePolicy, nodes.NodePolicy},
	{model.RouteEligibility, nodes.NodeEligibility},
	{model.RouteBenefits, nodes.NodeBenefits},
	{model.RouteAdvocacy, nodes.NodeAdvocacy},
}

// BuildGraph constructs and returns the compiled orchestrator graph
func BuildGraph(ctx context.Context, config *GraphConfig) (compose.Runnable[model.TurnInput, *model.TurnOutput], error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.Router == nil {
		return nil, fmt.Errorf("router gateway is nil")
	}
	if config.Conversation == nil {
		return nil, fmt.Errorf("conversation machine is nil")
	}
	for _, s := range specialistNodes {
		if config.Specialists[s.route] == nil {
			return nil, fmt.Errorf("specialist for %s is missing", s.route)
		}
	}

	builder := &GraphBuilder{
		config: config,
		graph: compose.NewGraph[model.TurnInput, *model.TurnOutput](
			compose.WithGenLocalState(func(ctx context.Context) *model.AppState {
				return &model.AppState{}
			}),
		),
	}

	if err := builder.addNodes(); err != nil {
		return nil, err
	}
	if err := builder.addEdges(); err != nil {
		return nil, err
	}
	if err := builder.addBranches(); err != nil {
		return nil, err
	}
	return builder.compile(ctx)
}

// addNodes adds the orchestrator and every terminal node to the graph
func (b *GraphBuilder) addNodes() error {
	if err := b.graph.AddLambdaNode(nodes.NodeOrchestrator,
		nodes.NewOrchestratorNode(b.config.Router, b.config.RouterMaxTurns),
		compose.WithStatePreHandler(nodes.NewOrchestratorPreHandler()),
		compose.WithStatePostHandler(nodes.NewOrchestratorPostHandler()),
	); err != nil {
		return fmt.Errorf("add %s node: %w", nodes.NodeOrchestrator, err)
	}

	for _, s := range specialistNodes {
		if err := b.graph.AddLambdaNode(s.node, nodes.NewSpecialistNode(b.config.Specialists[s.route])); err != nil {
			return fmt.Errorf("add %s node: %w", s.node, err)
		}
	}
	if err := b.graph.AddLambdaNode(nodes.NodeConversation, nodes.NewConversationNode(b.config.Conversation)); err != nil {
		return fmt.Errorf("add %s node: %w", nodes.NodeConversation, err)
	}
	if err := b.graph.AddLambdaNode(nodes.NodeFinish, nodes.NewFinishNode()); err != nil {
		return fmt.Errorf("add %s node: %w", nodes.NodeFinish, err)
	}
	return nil
}

// addEdges creates the main flow connections between nodes
func (b *GraphBuilder) addEdges() error {
	edges := [][2]string{
		{compose.START, nodes.NodeOrchestrator},
		{nodes.NodeConversation, compose.END},
		{nodes.NodeFinish, compose.END},
	}
	for _, s := range specialistNodes {
		edges = append(edges, [2]string{s.node, compose.END})
	}

	for _, edge := range edges {
		if err := b.graph.AddEdge(edge[0], edge[1]); err != nil {
			return fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}
	return nil
}

// addBranches routes the orchestrator decision to exactly one node
func (b *GraphBuilder) addBranches() error {
	routeBranch := compose.NewGraphBranch(nodes.NewRouteCondition(), nodes.BranchTargets())
	if err := b.graph.AddBranch(nodes.NodeOrchestrator, routeBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding route branch")
		return fmt.Errorf("error adding route branch: %w", err)
	}
	return nil
}

// compile finalizes and compiles the graph
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.TurnInput, *model.TurnOutput], error) {
	runnable, err := b.graph.Compile(ctx,
		compose.WithGraphName(graphName),
		compose.WithMaxRunSteps(10),
	)
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}
