package status

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/sirupsen/logrus"
)

// EC2 appends the state of the backend game server's instance to the
// description of another Source, so players can see whether the real server
// is up before they try to join it.
type EC2 struct {
	Source     Source
	Client     ec2.DescribeInstancesAPIClient
	InstanceID string
	Log        logrus.FieldLogger
}

// NewEC2Client builds a client from the default AWS credential chain.
func NewEC2Client(ctx context.Context, region string) (*ec2.Client, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return ec2.NewFromConfig(cfg), nil
}

func (e *EC2) Status(ctx context.Context) (Status, error) {
	st, err := e.Source.Status(ctx)
	if err != nil {
		return st, err
	}

	state, err := e.InstanceState(ctx)
	if err != nil {
		if e.Log != nil {
			e.Log.WithError(err).WithField("instance_id", e.InstanceID).Warn("failed to describe backend instance")
		}
		state = "unknown"
	}

	st.Description.Text += "\nbackend: " + state
	return st, nil
}

// InstanceState returns the instance's state name, e.g. "running".
func (e *EC2) InstanceState(ctx context.Context) (string, error) {
	out, err := e.Client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{e.InstanceID},
	})
	if err != nil {
		return "", err
	}

	for _, r := range out.Reservations {
		for _, inst := range r.Instances {
			if inst.State != nil {
				return string(inst.State.Name), nil
			}
		}
	}
	return "", fmt.Errorf("instance %s not found", e.InstanceID)
}
