package mocks

import "github.com/stretchr/testify/mock"

//Publisher is a job status event publisher mock
type Publisher struct {
	mock.Mock
}

//Publish is a mocked function, id is the job id and topic its new status
func (m *Publisher) Publish(id string, topic string) error {
	args := m.Mock.Called(id, topic)
	return args.Error(0)
}

//Topics returns the topics published for the job in call order
func (m *Publisher) Topics(id string) []string {
	var res []string
	for _, c := range m.Calls {
		if c.Method == "Publish" && c.Arguments.String(0) == id {
			res = append(res, c.Arguments.String(1))
		}
	}
	return res
}
